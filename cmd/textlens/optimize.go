package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/textlens/internal/cli"
	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

type optimizeOptions struct {
	text     string
	file     string
	model    string
	provider string
	keywords []string
	asJSON   bool
}

func optimizeCmd() *cobra.Command {
	var opts optimizeOptions

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Rewrite text to feature target keywords",
		Long: `Rewrite text with an OpenAI or Anthropic model so the target keywords
appear naturally. The last analysis decides which keywords are brand names
worth focusing on. The estimated cost of each call is charged to that
provider's budget.`,
		Example: `  textlens optimize --file post.txt --keywords "solar panels,energy savings"
  textlens optimize --text "..." --keywords SunPower --model claude-3-5-haiku-20241022`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOptimize(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "text to optimize")
	cmd.Flags().StringVar(&opts.file, "file", "", "read the text to optimize from a file")
	cmd.Flags().StringSliceVar(&opts.keywords, "keywords", nil, "target keywords (comma separated)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model to use (default from settings, then per provider)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider used to pick the default model (openai, anthropic)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")
	_ = cmd.MarkFlagRequired("keywords")

	return cmd
}

const noPriorAnalysisNotice = "No earlier analysis found; single-word targets were left out of the focus list " +
	"because no brand or product entities are known. Run analyze first to keep them."

func runOptimize(cmd *cobra.Command, opts optimizeOptions) error {
	text := opts.text
	if opts.file != "" {
		if text != "" {
			return common.NewUserError("Use either --text or --file, not both.", nil)
		}
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.file, err)
		}
		text = string(data)
	}

	req := model.OptimizationRequest{
		OriginalText:   text,
		Model:          opts.model,
		TargetKeywords: opts.keywords,
	}
	if opts.provider != "" {
		p, err := model.ParseProvider(opts.provider)
		if err != nil {
			return common.NewUserError(err.Error(), nil)
		}
		req.Provider = p
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Optimization").
		HandleInterrupts(cmd.Context(), "No cost is recorded for an unfinished call.")
	defer stop()

	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	prior, err := a.analysis.LastResult(ctx)
	if err != nil {
		return err
	}
	req.PriorResult = prior

	if err := a.resolver.Resolve(ctx, &req); err != nil {
		return err
	}

	outcome, err := a.optimizer.Optimize(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	if prior == nil {
		fmt.Fprintln(out, cli.FormatInfo(noPriorAnalysisNotice))
	}
	fmt.Fprintln(out, cli.NewFormatter().FormatOptimization(outcome))
	return nil
}
