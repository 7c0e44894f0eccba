package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/version"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "contentai",
	Short: "Turn social videos and plain text into ready-to-post content",
	Long: `contentai scrapes videos from TikTok, YouTube and other sources, transcribes
them and rewrites the transcript for LinkedIn, Twitter, TikTok, YouTube and Instagram.

Examples:
  contentai source https://www.tiktok.com/@someone --limit 5
  contentai source "growth marketing" --platforms linkedin,twitter
  contentai text "We shipped our biggest release yet..."
  contentai serve`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: "+config.SavePath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline logs to stderr")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		return 1
	}
	return 0
}

// loadConfig reads the config named by --config, or the default file, and
// applies environment overrides.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		if !config.Exists() {
			fmt.Fprintln(os.Stderr, color.YellowString("Warning: config file not found. Run 'contentai init' to create one."))
		}
		return config.LoadOrDefault(), nil
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

// loadRawConfig reads the config without environment overrides, for editing.
func loadRawConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// setupLogging sends pipeline logs to a file unless --verbose is set, so they
// do not interleave with the progress display.
func setupLogging() {
	if verbose {
		log.SetOutput(os.Stderr)
		return
	}
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "contentai.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
}
