package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/textlens/internal/cli"
	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

func costsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Show and manage estimated LLM spend",
	}

	cmd.AddCommand(costsShowCmd())
	cmd.AddCommand(costsBudgetCmd())
	cmd.AddCommand(costsResetCmd())

	return cmd
}

func parseProviderArg(arg string) (model.Provider, error) {
	p, err := model.ParseProvider(arg)
	if err != nil {
		return "", common.NewUserError(err.Error(), nil)
	}
	return p, nil
}

func costsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [provider]",
		Short: "Show budgets, or the call history of one provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			formatter := cli.NewFormatter()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")

			if len(args) == 0 {
				summaries, err := a.tracker.Summaries(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return enc.Encode(summaries)
				}
				fmt.Fprintln(out, formatter.FormatCostSummaries(summaries))
				return nil
			}

			p, err := parseProviderArg(args[0])
			if err != nil {
				return err
			}
			history, err := a.tracker.History(ctx, p)
			if err != nil {
				return err
			}
			if asJSON {
				return enc.Encode(history)
			}
			fmt.Fprintln(out, formatter.FormatHistory(p, history))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func costsBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "budget <provider> <amount>",
		Short:   "Set the remaining budget of a provider in USD",
		Example: "  textlens costs budget openai 25",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProviderArg(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("Budget %q is not a number.", args[1]), err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.tracker.SetBudget(ctx, p, amount)
			if err != nil {
				return common.NewUserError("Budget must be a non-negative amount.", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("%s budget set: $%.2f remaining ($%.4f spent so far)", p, b.Remaining, b.TotalSpent)))
			return nil
		},
	}
}

func costsResetCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [provider]",
		Short: "Clear call history and restore the default budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return common.NewUserError("Name one provider or pass --all.", nil)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				if err := a.tracker.ResetAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Cost tracking reset for all providers"))
				return nil
			}

			p, err := parseProviderArg(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.ResetTracking(ctx, p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Cost tracking reset for %s", p)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reset every provider")
	return cmd
}
