package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create contentai config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initDefaults || !term.IsTerminal(int(os.Stdin.Fd())) {
			if err := config.Init(); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", config.SavePath())
			return nil
		}

		// Existing values are the wizard's defaults.
		cfg, err := runInitWizard(loadRawConfig())
		if err != nil {
			return err
		}

		if err := promptAPIKeys(cfg); err != nil {
			return err
		}

		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Printf("\nSaved %s\n", config.SavePath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write the default config without prompting")
	rootCmd.AddCommand(initCmd)
}

// promptAPIKeys asks for keys that neither the config nor the environment provide.
func promptAPIKeys(cfg *config.Config) error {
	env := config.DefaultConfig()
	env.Generation.Provider = cfg.Generation.Provider
	env.Transcription.Provider = cfg.Transcription.Provider
	config.ApplyEnv(env)

	if cfg.Generation.APIKey == "" && env.Generation.APIKey == "" {
		key, err := readSecret(fmt.Sprintf("%s API key for generation (enter to skip): ", cfg.Generation.Provider))
		if err != nil {
			return err
		}
		cfg.Generation.APIKey = skipped(key)
	}

	if cfg.Transcription.APIKey == "" && env.Transcription.APIKey == "" {
		// The same OpenAI key usually serves both.
		if cfg.Generation.Provider == "openai" && cfg.Transcription.BaseURL == "" && cfg.Generation.APIKey != "" {
			cfg.Transcription.APIKey = cfg.Generation.APIKey
			return nil
		}
		key, err := readSecret("API key for transcription (enter to skip): ")
		if err != nil {
			return err
		}
		cfg.Transcription.APIKey = skipped(key)
	}
	return nil
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func skipped(key string) string {
	if key == "" {
		fmt.Println(color.YellowString("  skipped; set it later with 'contentai config set' or in .env"))
	}
	return key
}
