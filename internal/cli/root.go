// Package cli implements the csv2oltp command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "csv2oltp",
	Short: "Idempotent CSV to PostgreSQL loader",
	Long: `csv2oltp loads one CSV file per registered table into PostgreSQL.

Tables are loaded in dependency order inside a single transaction. Every
value is normalized before it is compared or stored, and a row is inserted
only if no record with the same key values exists. Rows that fail are
logged and skipped; the rest of the load continues. Running the same load
twice inserts nothing the second time.

Configuration is read from the environment and an optional .env file in
the working directory. See "csv2oltp load --help" for the variables.

Exit Codes:
  0  - Load committed (individual row failures are reported, not fatal)
  1  - Run failed and was rolled back (configuration, connection,
       missing source file, schema bootstrap or commit error)`,
	SilenceUsage: true,
	RunE:         runLoad,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindLoadFlags(rootCmd)
}
