package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csv2oltp/internal/admin"
	"github.com/JonMunkholm/csv2oltp/internal/config"
	"github.com/JonMunkholm/csv2oltp/internal/core"
	"github.com/JonMunkholm/csv2oltp/internal/database"
	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all rows from every registered table",
	Long: `Reset empties every registered table in reverse load order inside one
transaction. The schema is left in place.

This is destructive and requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

type resetFlagValues struct {
	confirmed bool
	envFile   string
}

var resetFlags resetFlagValues

func clearResetFlags() {
	resetFlags = resetFlagValues{}
}

func init() {
	resetCmd.Flags().BoolVar(&resetFlags.confirmed, "yes", false, "Confirm deletion of all loaded rows")
	resetCmd.Flags().StringVar(&resetFlags.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetFlags.confirmed {
		return errors.New("refusing to reset without --yes")
	}

	loadEnvFile(resetFlags.envFile)

	// CSV_DIR is irrelevant here; satisfy validation with a placeholder.
	cfg, err := config.Load(config.WithCSVDir("."))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx := logging.NewContext(parent, logger)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	reset := &admin.ResetTables{
		Begin:  database.Beginner(pool),
		Tables: core.All(),
	}
	if err := reset.ResetAll(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "reset %d tables\n", core.TableCount())
	return nil
}
