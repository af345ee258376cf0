package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func (a *app) rateLimitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ratelimit",
		Aliases: []string{"rate-limit", "quota"},
		Short:   "Show the current GraphQL quota",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			s, err := svc.client.Summary(cmd.Context())
			if err != nil {
				return err
			}
			renderSummary(a.stdout, s, time.Now())
			return nil
		},
	}
}
