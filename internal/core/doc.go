// Package core provides the idempotent bulk-load engine behind csv2oltp.
//
// The engine reads one CSV file per table, normalizes every value, and
// inserts each row only if no stored record matches it on the table's
// uniqueness key. It is independent of the CLI and can be driven by tests
// or other tools without modification.
//
// # Table Registry
//
// Tables are registered at init time using [Register], in load order:
//
//	core.Register(core.TableDescriptor{Name: "users", Key: []string{"username", "email"}})
//
// # Load Flow
//
//  1. [Driver.Run] opens one outer transaction and runs the schema file, if any
//  2. For each table, [Source.Load] reads "<table>.csv" and the key is
//     validated against its header
//  3. Every value is passed through [NormalizeValue]
//  4. [Inserter.Insert] wraps the existence check and insert of each row in a
//     savepoint and reports a [RowOutcome]
//  5. The outer transaction is committed once after the last table
//
// # Error Handling
//
// Row failures roll back to the row's savepoint, are logged with the full
// row and an error code from [MapError], and never stop the run. Failures to
// begin, read a source, run the schema file or commit are returned from
// [Driver.Run] and leave nothing committed.
package core
