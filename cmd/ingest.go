package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/orgsignal/decision-cli/internal/ingest"
)

var ingestTeam string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Load decision log files (YAML or XLSX) for a team",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		reports, err := ingest.New(st, cfg.Ingest).IngestFiles(ctx, ingestTeam, args)
		if err != nil {
			return err
		}

		for _, r := range reports {
			fmt.Printf("%s: %d decisions, %d edges (file %s)\n",
				r.File.Name, r.Decisions, r.Edges, r.File.Hash[:12])
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTeam, "team", "", "team id (required)")
	ingestCmd.MarkFlagRequired("team") //nolint:errcheck
	rootCmd.AddCommand(ingestCmd)
}
