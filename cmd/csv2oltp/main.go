package main

import (
	"os"

	"github.com/JonMunkholm/csv2oltp/internal/cli"
	_ "github.com/JonMunkholm/csv2oltp/internal/core/tables" // Register all tables
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
