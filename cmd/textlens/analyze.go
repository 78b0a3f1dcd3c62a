package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/textlens/internal/cli"
	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/nlu"
)

var defaultFeatures = []string{"keywords", "entities", "sentiment", "categories"}

type analyzeOptions struct {
	text     string
	provider string
	language string
	features []string
	limit    int
	asJSON   bool
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze text with Watson or Google NLU",
		Long: `Analyze text for keywords, entities, sentiment and more.

Text comes from --text, from files given as arguments, or from stdin with "-".
Several files are analyzed concurrently.`,
		Example: `  textlens analyze --text "Solar panels cut energy bills."
  textlens analyze --provider google --features keywords,entities post.txt
  textlens analyze --features keywords,classifications --language fr drafts/*.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "text to analyze")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "NLU provider (watson, google); default from config")
	cmd.Flags().StringVar(&opts.language, "language", "", "language of the text (e.g. en, fr)")
	cmd.Flags().StringSliceVar(&opts.features, "features", defaultFeatures, "features to request")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum keywords and entities to return")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")

	return cmd
}

func buildAnalysisRequest(text string, opts analyzeOptions) (model.AnalysisRequest, error) {
	req := model.AnalysisRequest{
		Text:     text,
		Language: opts.language,
	}
	for _, name := range opts.features {
		f, ok := model.ParseFeature(strings.TrimSpace(name))
		if !ok {
			return req, common.NewUserError(fmt.Sprintf("Unknown analysis feature %q.", name), nil)
		}
		req.Features = append(req.Features, f)
	}
	if opts.limit > 0 {
		req.Limits = map[model.Feature]int{
			model.FeatureKeywords: opts.limit,
			model.FeatureEntities: opts.limit,
		}
	}
	if req.Has(model.FeatureClassifications) {
		req.ToneModel = nlu.ToneModel(opts.language)
	}
	return req, nil
}

// analysisInput is one text to analyze and where it came from.
type analysisInput struct {
	source string
	text   string
}

func readInputs(cmd *cobra.Command, args []string, inline string) ([]analysisInput, error) {
	if inline != "" {
		if len(args) > 0 {
			return nil, common.NewUserError("Use either --text or file arguments, not both.", nil)
		}
		return []analysisInput{{source: "--text", text: inline}}, nil
	}
	if len(args) == 0 {
		return nil, common.NewUserError("Provide text with --text, file arguments, or \"-\" for stdin.", nil)
	}

	inputs := make([]analysisInput, 0, len(args))
	for _, arg := range args {
		var data []byte
		var err error
		if arg == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		inputs = append(inputs, analysisInput{source: arg, text: string(data)})
	}
	return inputs, nil
}

func runAnalyze(cmd *cobra.Command, args []string, opts analyzeOptions) error {
	inputs, err := readInputs(cmd, args, opts.text)
	if err != nil {
		return err
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Analysis").
		HandleInterrupts(cmd.Context(), "")
	defer stop()

	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := analyzeAll(ctx, cmd.ErrOrStderr(), a, inputs, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	formatter := cli.NewFormatter()
	for i, result := range results {
		if len(results) > 1 {
			fmt.Fprintln(out, cli.FormatTitle(inputs[i].source))
		}
		fmt.Fprintln(out, formatter.FormatAnalysis(result))
		fmt.Fprintln(out)
	}
	return nil
}

// analyzeAll runs every input with bounded concurrency, keeping input order in the results.
func analyzeAll(ctx context.Context, progress io.Writer, a *app, inputs []analysisInput, opts analyzeOptions) ([]*model.AnalysisResult, error) {
	results := make([]*model.AnalysisResult, len(inputs))

	var bar *progressbar.ProgressBar
	if len(inputs) > 1 {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Analyzing files...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(progress)
			}),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(appConfig.Analysis.Concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			req, err := buildAnalysisRequest(input.text, opts)
			if err != nil {
				return err
			}
			result, err := a.analysis.Run(gctx, req, opts.provider)
			if err != nil {
				return fmt.Errorf("%s: %w", input.source, err)
			}
			results[i] = result

			if bar != nil {
				if err := bar.Add(1); err != nil {
					a.logger.Warn("Failed to update progress bar", "error", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
