package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/orgsignal/decision-cli/internal/brief"
	anthropicpkg "github.com/orgsignal/decision-cli/pkg/anthropic"
)

var (
	briefTeam   string
	briefBudget int
)

var briefCmd = &cobra.Command{
	Use:   "brief [question...]",
	Short: "Generate a decision brief answering a question from team context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("brief"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		gen := brief.New(
			st,
			initRetriever(),
			anthropicpkg.NewClient(cfg.Anthropic.Key),
			rate.NewLimiter(rate.Limit(cfg.Anthropic.RateLimit), 1),
			brief.Config{
				Model:       cfg.Anthropic.Model,
				MaxTokens:   int64(cfg.Anthropic.MaxTokens),
				TokenBudget: briefBudget,
			},
		)

		b, err := gen.Generate(ctx, briefTeam, strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Println(b.Text)
		if len(b.Context) > 0 {
			fmt.Printf("\n--- grounded on %d decisions ---\n", len(b.Context))
			for _, d := range b.Context {
				fmt.Printf("  %s\n", d.Label())
			}
		}
		return nil
	},
}

func init() {
	briefCmd.Flags().StringVar(&briefTeam, "team", "", "team id (required)")
	briefCmd.Flags().IntVar(&briefBudget, "budget", 2000, "context token budget")
	briefCmd.MarkFlagRequired("team") //nolint:errcheck
	rootCmd.AddCommand(briefCmd)
}
