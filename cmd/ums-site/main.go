package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ums-math/ums-site/internal/app"
	"github.com/ums-math/ums-site/internal/commands"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:embed static/*
var staticFiles embed.FS

var (
	// Global flags
	verbose    bool
	configPath string
	listen     string
	dataDir    string
	dataURL    string

	logger *zap.Logger
	cfg    *app.Config
)

var rootCmd = &cobra.Command{
	Use:   "ums-site",
	Short: "Undergraduate Math Society website",
	Long: `ums-site renders the Undergraduate Math Society website from its JSON
data files: the lecture calendar, the front page lecture, leadership and the
proof writing workshop handouts.

Run without a subcommand to start the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		// Flags win over file and environment
		if listen != "" {
			cfg.Listen = listen
		}
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}
		if dataURL != "" {
			cfg.Data.BaseURL = dataURL
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

var renderOpts commands.RenderOptions

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the front page to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.Render(cmd.Context(), cfg, renderOpts, cmd.OutOrStdout(), logger)
	},
}

var importOut string

var importEventsCmd = &cobra.Command{
	Use:   "import-events <dir>",
	Short: "Convert legacy lecture HTML pages into events JSON files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.ImportEvents(args[0], importOut, cmd.OutOrStdout(), logger)
	},
}

var hashOpts commands.HashPasswordOptions

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Create the auth.secret file for the admin endpoints (Argon2id)",
	Long: `Creates an auth.secret file with a hashed password (Argon2id).

Environment Variables:
  AUTH_FILE    Path to auth file (default: auth.secret next to the binary)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hashOpts.AuthFile == "" {
			hashOpts.AuthFile = cfg.Auth.File
		}
		return commands.HashPassword(hashOpts)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	return commands.Serve(cmd.Context(), cfg, staticFiles, logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&listen, "listen", "", "Listen address (default :8080)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Local site checkout with events/ and data/")
	rootCmd.PersistentFlags().StringVar(&dataURL, "data-url", "", "Base URL of a deployed site to read data from")

	renderCmd.Flags().StringVar(&renderOpts.Semester, "semester", "", "Semester key, e.g. 2024_fall (default: latest)")
	renderCmd.Flags().StringVar(&renderOpts.Leadership, "leadership", "", "Leadership year or \"previous\"")
	renderCmd.Flags().StringVar(&renderOpts.Workshop, "proofwriting", "", "Proof writing workshop year")
	renderCmd.Flags().StringVarP(&renderOpts.Out, "out", "o", "", "Output file (default: stdout)")

	importEventsCmd.Flags().StringVar(&importOut, "out", "", "Output directory (default: the input directory)")

	hashPasswordCmd.Flags().StringVar(&hashOpts.AuthFile, "auth-file", "", "Path to auth file")
	hashPasswordCmd.Flags().BoolVar(&hashOpts.Overwrite, "overwrite", false, "Overwrite existing auth file without asking")
	hashPasswordCmd.Flags().BoolVar(&hashOpts.InsecureUnmask, "insecure-unmask-password", false, "Show password as plain text (INSECURE!)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(importEventsCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
