package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	retrieveTeam   string
	retrieveBudget int
	retrieveJSON   bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query...]",
	Short: "Retrieve the most relevant decisions under a token budget",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		if retrieveBudget <= 0 {
			return eris.New("--budget must be > 0")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		corpus, err := st.ListDecisions(ctx, retrieveTeam, 0, 0)
		if err != nil {
			return err
		}

		result := initRetriever().Retrieve(query, corpus, retrieveBudget)

		if retrieveJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		if len(result.Decisions) == 0 {
			fmt.Println("no relevant decisions")
			return nil
		}
		for i, d := range result.Decisions {
			fmt.Printf("%d. [%.3f] %s\n", i+1, result.Scores[d.ID], d.Label())
		}
		fmt.Printf("token count: %d / %d\n", result.TokenCount, retrieveBudget)
		return nil
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveTeam, "team", "", "team id (required)")
	retrieveCmd.Flags().IntVar(&retrieveBudget, "budget", 2000, "token budget")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "emit JSON")
	retrieveCmd.MarkFlagRequired("team") //nolint:errcheck
	rootCmd.AddCommand(retrieveCmd)
}
