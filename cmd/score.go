package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	scoreTeam string
	scoreJSON bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the consistency score for a team",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		metrics, err := initDetector(st).ConsistencyScore(ctx, scoreTeam)
		if err != nil {
			return err
		}

		if scoreJSON {
			return json.NewEncoder(os.Stdout).Encode(metrics)
		}

		fmt.Printf("consistency score: %d/100\n", metrics.Score)
		fmt.Printf("  decisions: %d (red %d, green %d, neutral %d)\n",
			metrics.TotalDecisions, metrics.RedFlags, metrics.GreenAlignments, metrics.NeutralCount)
		fmt.Printf("  unresolved conflicts: %d\n", metrics.UnresolvedConflicts)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreTeam, "team", "", "team id (required)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "emit JSON")
	scoreCmd.MarkFlagRequired("team") //nolint:errcheck
	rootCmd.AddCommand(scoreCmd)
}
