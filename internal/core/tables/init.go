// Package tables registers all table descriptors with the core registry.
// Import this package to ensure all tables are registered.
package tables
