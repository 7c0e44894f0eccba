package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dev-derah/simple-content-ai/internal/core/input"
	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

var (
	sourceLimit     int
	sourceType      string
	outputPlatforms []string
	outputPrompt    string
	outputJSON      bool
)

// sourceProcessor is the part of the orchestrator the source command uses.
type sourceProcessor interface {
	ProcessSource(ctx context.Context, req source.Request, limit int, opts pipeline.Options) ([]pipeline.ItemResult, error)
}

var sourceCmd = &cobra.Command{
	Use:   "source <url|keyword>",
	Short: "Scrape, transcribe and repurpose videos from a source",
	Long: `Scrape videos from a profile, channel, search, single video URL or keyword,
transcribe them and generate content for each output platform.

Examples:
  contentai source https://www.tiktok.com/@someone --limit 5
  contentai source https://www.youtube.com/watch?v=dQw4w9WgXcQ
  contentai source "morning routine" -p linkedin,instagram
  contentai source https://www.tiktok.com/@someone --json > out.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req, err := input.ResolveRequest(strings.Join(args, " "), sourceLimit)
		if err != nil {
			return err
		}
		if sourceType != "" {
			ct, err := source.ParseContentType(sourceType)
			if err != nil {
				return err
			}
			if req, err = req.WithContentType(ct); err != nil {
				return err
			}
		}

		opts, err := outputOptions()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch, err := pipeline.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer orch.Close()

		results, err := runWithProgress(ctx, orch, req, sourceLimit, opts)
		if errors.Is(err, source.ErrNoResults) {
			fmt.Fprintf(os.Stderr, "No videos found for %s\n", req.Query)
			return nil
		}
		if err != nil {
			return err
		}

		if outputJSON {
			if err := writeItemsJSON(os.Stdout, results); err != nil {
				return err
			}
		} else {
			renderItems(os.Stdout, results)
		}

		if ok, failed := pipeline.Summary(results); ok == 0 && failed > 0 {
			return fmt.Errorf("all %d item(s) failed: %w", failed, pipeline.FirstError(results))
		}
		return nil
	},
}

// outputOptions builds pipeline options from the shared output flags.
func outputOptions() (pipeline.Options, error) {
	opts := pipeline.Options{CustomInstructions: outputPrompt}
	if len(outputPlatforms) > 0 {
		platforms, err := repurpose.ParsePlatforms(outputPlatforms)
		if err != nil {
			return opts, err
		}
		opts.Platforms = platforms
	}
	return opts, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&outputPlatforms, "platforms", "p", nil, "output platforms ("+strings.Join(repurpose.AllPlatformNames(), ",")+")")
	cmd.Flags().StringVar(&outputPrompt, "prompt", "", "additional instructions for the generator")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print results as JSON")
	_ = cmd.RegisterFlagCompletionFunc("platforms", completePlatforms)
}

func init() {
	sourceCmd.Flags().IntVarP(&sourceLimit, "limit", "n", 0, "max videos to process (default from config)")
	sourceCmd.Flags().StringVar(&sourceType, "type", "", "override the detected content type (profile, channel, search, video...)")
	addOutputFlags(sourceCmd)

	rootCmd.AddCommand(sourceCmd)
}
