package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/orgsignal/decision-cli/internal/api"
	"github.com/orgsignal/decision-cli/internal/brief"
	anthropicpkg "github.com/orgsignal/decision-cli/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decision-intelligence HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		retriever := initRetriever()

		// Brief generation is optional; without an API key the route
		// answers 503.
		var briefer *brief.Generator
		if cfg.Anthropic.Key != "" {
			briefer = brief.New(
				st,
				retriever,
				anthropicpkg.NewClient(cfg.Anthropic.Key),
				rate.NewLimiter(rate.Limit(cfg.Anthropic.RateLimit), 1),
				brief.Config{
					Model:     cfg.Anthropic.Model,
					MaxTokens: int64(cfg.Anthropic.MaxTokens),
				},
			)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return api.New(st, initDetector(st), retriever, briefer, port).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
