package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spx-backtester/internal/config"
	"spx-backtester/internal/logging"
	"spx-backtester/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.RunStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := config.DefaultConfigDir() + "/backtester.db"
	runStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize run store, persistence disabled")
	} else {
		app.Store = runStore
		logger.Debug().Str("path", dbPath).Msg("run store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "spx-backtest",
		Short: "SPX 0DTE Iron Condor backtester",
		Long: `spx-backtest replays an intraday SPX options strategy over historical
or synthetic data: it sells a same-day Iron Condor when volume, direction
and range conditions align, hedges the credit with a long straddle above
the market and settles everything at the close.

Use 'spx-backtest run' to execute a backtest and 'spx-backtest runs' to
inspect stored results.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/spx-backtester)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addRunCommand(rootCmd, app)
	addRunsCommands(rootCmd, app)
	return rootCmd
}
