package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csv2oltp/internal/config"
	"github.com/JonMunkholm/csv2oltp/internal/core"
	"github.com/JonMunkholm/csv2oltp/internal/database"
	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every registered table from CSV",
	Long: `Load reads <table>.csv from the CSV directory for every registered table
and inserts the rows that are not already present.

Environment:
  DATABASE_URL        Full connection string (overrides DB_*)
  DB_HOST             Database host (default: localhost)
  DB_PORT             Database port (default: 5432)
  DB_NAME             Database name
  DB_USER             Database user
  DB_PASS             Database password
  DB_SSLMODE          SSL mode (default: prefer)
  DB_CONNECT_TIMEOUT  Connection timeout (default: 10s)
  CSV_DIR             Directory holding <table>.csv files (required)
  DB_INIT             SQL file executed before loading
  LOAD_FAILED_DIR     Directory for "<table> - failed.csv" reports
  LOAD_TIMEOUT        Upper bound for the whole run (0 = none)
  LOG_LEVEL           debug, info, warn, error (default: info)
  LOG_FORMAT          text, json (default: text)

Flags override the matching environment variables.

Examples:
  # Load using .env
  csv2oltp load

  # Create the schema first, keep failed rows for review
  csv2oltp load --init db/init.sql --failed-dir ./failed`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

type loadFlagValues struct {
	csvDir    string
	initFile  string
	failedDir string
	envFile   string
}

var loadFlags loadFlagValues

func resetLoadFlags() {
	loadFlags = loadFlagValues{}
}

func init() {
	bindLoadFlags(loadCmd)
	rootCmd.AddCommand(loadCmd)
}

func bindLoadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&loadFlags.csvDir, "csv-dir", "", "Directory holding <table>.csv files (overrides CSV_DIR)")
	cmd.Flags().StringVar(&loadFlags.initFile, "init", "", "SQL file executed before loading (overrides DB_INIT)")
	cmd.Flags().StringVar(&loadFlags.failedDir, "failed-dir", "", "Directory for failed row reports (overrides LOAD_FAILED_DIR)")
	cmd.Flags().StringVar(&loadFlags.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
}

func runLoad(cmd *cobra.Command, args []string) error {
	loadEnvFile(loadFlags.envFile)

	cfg, err := config.Load(
		config.WithCSVDir(loadFlags.csvDir),
		config.WithInitFile(loadFlags.initFile),
		config.WithFailedDir(loadFlags.failedDir),
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"database", cfg.Database.Target(),
		"csv_dir", cfg.Load.CSVDir,
		"tables", core.TableCount(),
	)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(logging.NewContext(parent, logger), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Load.Timeout)
		defer cancel()
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database", "target", cfg.Database.Target())

	driver := newDriver(cfg, database.Beginner(pool))
	result, err := driver.Run(ctx)
	if err != nil {
		logger.Error("load failed, transaction rolled back", "error", err)
		return err
	}

	printSummary(cmd.OutOrStdout(), result)
	return nil
}

// newDriver assembles a Driver for every registered table.
func newDriver(cfg *config.Config, begin core.BeginFunc) *core.Driver {
	driver := &core.Driver{
		Begin:      begin,
		Source:     core.NewDirSource(cfg.Load.CSVDir),
		Tables:     core.All(),
		SchemaFile: cfg.Load.InitFile,
	}
	if cfg.Load.FailedDir != "" {
		driver.Report = &core.FailureReport{Dir: cfg.Load.FailedDir}
	}
	return driver
}

// loadEnvFile overlays variables from path onto the process environment.
// A missing file is not an error.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Overload(path); err != nil {
		slog.Debug("no env file loaded, using environment variables", "path", path)
		return
	}
	slog.Debug("loaded env file (overwriting existing env vars)", "path", path)
}

func printSummary(w io.Writer, result *core.RunResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tINSERTED\tSKIPPED\tFAILED")
	for _, t := range result.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Table, t.TotalRows, t.Inserted, t.Skipped, t.Failed())
	}
	fmt.Fprintf(tw, "total\t\t%d\t%d\t%d\n", result.Inserted(), result.Skipped(), result.Failed())
	tw.Flush()
}
