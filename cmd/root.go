package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kwachira/pesaflow/config"
	"github.com/kwachira/pesaflow/gateway"
	"github.com/kwachira/pesaflow/payments"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *gateway.Client
	service *payments.Service

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pesaflow",
	Short: "A CLI for the PesaFlow payment gateway",
	Long: `pesaflow is a CLI for operating the PesaFlow payment gateway:
initiating push payments and payouts, registering callback URLs, and
inspecting transactions.`,
	PersistentPreRunE: initializeApp,
}

// SetVersion sets the version information for the CLI.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, bt)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(testCmd)
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	// Create gateway client
	opts := []gateway.Option{
		gateway.WithTimeout(time.Duration(cfg.Gateway.TimeoutMs) * time.Millisecond),
		gateway.WithRetryPolicy(gateway.DefaultRetryPolicy(cfg.Gateway.MaxAttempts)),
	}
	if cfg.Gateway.BaseURL != "" {
		opts = append(opts, gateway.WithBaseURL(cfg.Gateway.BaseURL))
	}

	client, err = gateway.NewClient(
		gateway.Environment(cfg.Gateway.Environment),
		cfg.Gateway.APIKey,
		cfg.Gateway.SecretKey,
		logger,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}

	service = payments.NewService(client, logger)

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; drop color when stderr is not a terminal
	noColor := !cfg.Color
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		noColor = true
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// testCmd verifies connectivity and credentials
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and credentials against the gateway",
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Printf("✓ Authenticated against %s\n", client.BaseURL())
	return nil
}
