package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/output"
	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
)

var (
	textFile string
	textSave string
)

var textCmd = &cobra.Command{
	Use:   "text [text|-]",
	Short: "Repurpose text you already have",
	Long: `Generate platform content from text given as arguments, a file or stdin.

Examples:
  contentai text "We shipped our biggest release yet..."
  contentai text -f notes.md -p linkedin,twitter
  pbpaste | contentai text -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTextInput(args, textFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts, err := outputOptions()
		if err != nil {
			return err
		}

		orch, err := pipeline.BuildTextOnly(cfg)
		if err != nil {
			return err
		}
		defer orch.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var res *repurpose.Result
		err = spin(ctx, "Generating content...", func(ctx context.Context) error {
			var err error
			res, err = orch.ProcessText(ctx, text, opts)
			return err
		})
		if err != nil {
			return err
		}

		if textSave != "" {
			if err := output.Write(textSave, output.Document{Result: res}); err != nil {
				return fmt.Errorf("save %s: %w", textSave, err)
			}
		}

		if outputJSON {
			return writeJSON(os.Stdout, res)
		}
		renderResult(os.Stdout, res)
		if textSave != "" {
			fmt.Printf("\nSaved %s\n", textSave)
		}
		return nil
	},
}

// readTextInput returns the text from --file, "-" (stdin) or the arguments.
func readTextInput(args []string, file string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		text = string(data)
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text given (pass text, --file or - for stdin)")
	}
	return text, nil
}

func init() {
	textCmd.Flags().StringVarP(&textFile, "file", "f", "", "read text from a file")
	textCmd.Flags().StringVarP(&textSave, "save", "o", "", "also write the content to a markdown file")
	addOutputFlags(textCmd)

	rootCmd.AddCommand(textCmd)
}
