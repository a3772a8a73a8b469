package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docsqa/config"
	"docsqa/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docsqa",
	Short: "Ask questions about a documentation corpus",
	Long: `docsqa indexes a directory of documentation, retrieves the passages most
similar to a question and asks a language model to answer from them, citing
the source files it used.

Example usage:
  docsqa init                          # Write a default rag.yaml
  docsqa index                         # Build the index from corpus.root
  docsqa query -q "install steps"      # Show the closest passages
  docsqa ask -q "How do I install it?" # Answer with sources
  docsqa serve                         # Start the HTTP query API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// Real environment variables win over .env entries.
		if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err = logger.New(cfg.Logging, os.Stderr, verbose)
		if err != nil {
			return err
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// GetLogger returns the logger configured for this invocation.
func GetLogger() *slog.Logger {
	if log == nil {
		return logger.Discard()
	}
	return log
}
