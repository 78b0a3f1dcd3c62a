package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/textlens/internal/cli"
	"github.com/Veraticus/textlens/internal/keywords"
	"github.com/Veraticus/textlens/internal/model"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Inspect target keywords",
	}
	cmd.AddCommand(keywordsStatusCmd())
	return cmd
}

func keywordsStatusCmd() *cobra.Command {
	var (
		targets    []string
		resultFile string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how target keywords match an analysis",
		Long: `Classify each target keyword as exact, partial, relevant or missing
against the keywords of an analysis. Uses the last analysis unless --result
names a saved JSON result.`,
		Example: `  textlens keywords status --keywords "solar panels,heat pumps"
  textlens analyze --json post.txt > result.json && textlens keywords status --result result.json --keywords solar`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var result *model.AnalysisResult

			if resultFile != "" {
				data, err := os.ReadFile(resultFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", resultFile, err)
				}
				result = &model.AnalysisResult{}
				if err := json.Unmarshal(data, result); err != nil {
					return fmt.Errorf("failed to parse %s: %w", resultFile, err)
				}
			} else {
				ctx := cmd.Context()
				a, err := newApp(ctx, appConfig)
				if err != nil {
					return err
				}
				defer a.Close()

				if result, err = a.analysis.LastResult(ctx); err != nil {
					return err
				}
				if result == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("No analysis yet; every keyword will show as missing."))
				}
			}

			matches := keywords.MatchAll(keywords.Dedupe(targets), result)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(matches)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewFormatter().FormatKeywordStatuses(matches))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&targets, "keywords", nil, "target keywords (comma separated)")
	cmd.Flags().StringVar(&resultFile, "result", "", "analysis result JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	_ = cmd.MarkFlagRequired("keywords")

	return cmd
}
