// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 5:02:11 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/app"
	"github.com/ternarybob/gleaner/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported
	serverPort  int
	serverHost  string
	verbose     bool

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "gleaner",
	Short:         "Search a logged-in content site and collect full post details",
	Long:          `Gleaner drives a real browser through a content site's search, opens every result and returns the extracted posts. Results are cached per query and count.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also write logs to stdout for one-shot commands")

	rootCmd.AddCommand(searchCmd, loginCmd, logoutCmd, cacheCmd, serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Validate
// 4. Initialize logger
func loadConfig(cmd *cobra.Command) error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("gleaner.toml"); err == nil {
			configFiles = append(configFiles, "gleaner.toml")
		} else if _, err := os.Stat("deployments/local/gleaner.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/gleaner.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	if err := config.Validate(); err != nil {
		return err
	}

	// One-shot commands print results on stdout, so their logs go to the
	// log file only unless --verbose is set
	if cmd.Name() != "serve" && !verbose {
		config.Logging.Output = slices.DeleteFunc(config.Logging.Output, func(output string) bool {
			return output == "stdout" || output == "console"
		})
	}

	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("driver", config.Browser.Driver).
		Str("session_store", config.Session.Store).
		Str("cache_store", config.Cache.Store).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")

	return nil
}

// newApp builds the application for a command. The caller must Close it.
func newApp() (*app.App, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
