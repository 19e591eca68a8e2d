package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orgsignal/decision-cli/internal/model"
)

var (
	conflictsTeam string
	conflictsJSON bool
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Detect conflicting decision chains for a team",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		flags, err := initDetector(st).DetectConflicts(ctx, conflictsTeam)
		if err != nil {
			return err
		}

		if conflictsJSON {
			return json.NewEncoder(os.Stdout).Encode(flags)
		}

		if len(flags) == 0 {
			fmt.Println("no conflicts detected")
			return nil
		}
		for _, f := range flags {
			printFlag(f)
		}
		return nil
	},
}

func printFlag(f model.ConflictFlag) {
	fmt.Printf("severity %d: %s <-> %s\n", f.Severity, f.DecisionA, f.DecisionB)
	fmt.Printf("  path: %s\n", strings.Join(f.ConflictPath, " -> "))
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsTeam, "team", "", "team id (required)")
	conflictsCmd.Flags().BoolVar(&conflictsJSON, "json", false, "emit JSON")
	conflictsCmd.MarkFlagRequired("team") //nolint:errcheck
	rootCmd.AddCommand(conflictsCmd)
}
