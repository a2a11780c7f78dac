// Package cli provides the command-line interface for the discipline journal.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"discipline-journal/internal/clock"
	"discipline-journal/internal/config"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/logging"
	"discipline-journal/internal/report"
	"discipline-journal/internal/security"
	"discipline-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-03-01"
)

// EnvConfigDir overrides the default configuration directory.
const EnvConfigDir = "JOURNAL_CONFIG_DIR"

// App holds the application dependencies. Config is loaded lazily once the
// --config flag has been parsed.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Discipline Journal - trade plan and discipline tracking",
		Long: `Discipline Journal records trade plans before entry, freezes them once armed,
judges every exit against the plan and scores the week on six discipline metrics.

Run 'journal serve' to start the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/discipline-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newPlanCmd(app))
	rootCmd.AddCommand(newReportCmd(app))
	rootCmd.AddCommand(newTokenCmd(app))

	return rootCmd
}

func (a *App) load(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		dir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.ConfigDir = dir

	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	a.Logger.Debug().Str("config_dir", dir).Msg("configuration loaded")
	return nil
}

func (a *App) location() *time.Location {
	loc, err := a.Config.Report.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

// openServices wires read-side services over the local database for
// commands that run without the HTTP server.
func (a *App) openServices() (*journal.Service, *report.Service, func(), error) {
	st, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	reports := report.NewService(st, clock.System{},
		report.WithLocation(a.location()),
		report.WithLogger(a.Logger),
	)
	j := journal.NewService(st, clock.System{}, clock.UUIDSource{},
		journal.WithLogger(a.Logger),
		journal.WithStrictEventTypes(a.Config.Events.StrictTypes),
		journal.WithChangeListener(reports),
	)
	return j, reports, func() { st.Close() }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Discipline Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(maskedConfig(app.Config))
			}
			showConfig(output, maskedConfig(app.Config))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.ConfigDir})
			} else {
				output.Println(app.ConfigDir)
			}
		},
	})

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		Long:  "Validate configuration. With --serve, also check settings the HTTP server requires.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			validate := app.Config.Validate
			if serve, _ := cmd.Flags().GetBool("serve"); serve {
				validate = app.Config.ValidateServe
			}
			if err := validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
				return nil
			}
			output.Success("✓ Configuration is valid")
			if err := app.Config.ValidateServe(); err != nil {
				output.Warning("! serve and token will refuse to start: %v", err)
			}
			return nil
		},
	}
	validateCmd.Flags().Bool("serve", false, "also check server settings")
	cmd.AddCommand(validateCmd)

	return cmd
}

// maskedConfig copies cfg with secrets masked.
func maskedConfig(cfg *config.Config) config.Config {
	masked := *cfg
	masked.Credentials.JWTSecret = security.MaskCredential(cfg.Credentials.JWTSecret)
	masked.Credentials.RedisPassword = security.MaskCredential(cfg.Credentials.RedisPassword)
	return masked
}

func showConfig(output *Output, cfg config.Config) {
	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr())
	output.Printf("  Timeouts:        read %s, write %s\n", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	output.Printf("  Rate Limit:      %.1f/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Printf("  Cache:           %s\n", cfg.Cache.Backend)
	if cfg.Cache.Backend == "redis" {
		output.Printf("  Redis:           %s/%d\n", cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	}
	output.Println()

	output.Bold("Report")
	output.Printf("  Timezone:        %s\n", cfg.Report.Timezone)
	output.Printf("  Cache TTL:       %s\n", cfg.Report.CacheTTL)
	output.Printf("  Strict Events:   %v\n", cfg.Events.StrictTypes)
	output.Println()

	output.Bold("Security")
	output.Printf("  Issuer:          %s\n", cfg.Auth.Issuer)
	output.Printf("  Audience:        %s\n", cfg.Auth.Audience)
	output.Printf("  JWT Secret:      %s\n", cfg.Credentials.JWTSecret)
	output.Printf("  Audit Trail:     %v\n", cfg.Audit.Enabled)
}
