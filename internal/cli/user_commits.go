package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/mining"
)

func (a *app) userCommitsCommand() *cobra.Command {
	opts := &mineOptions{}

	cmd := &cobra.Command{
		Use:     "user-commits [login...]",
		Aliases: []string{"authored"},
		Short:   "Collect every commit a user authored across their repositories",
		Long: `Collect one row per commit each GitHub login authored on any branch of the
repositories they own or collaborate on, with line changes per language.
A user without commits gets a single row with their login.`,
		Example: `  forge-miner user-commits octocat
  forge-miner user-commits -i users.csv --since 2024-01-01 -f csv -o commits.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, until, err := opts.timeRange()
			if err != nil {
				return err
			}

			return a.mine(cmd, args, opts, mining.UserCommitHeaders(), validLogin, func(s *services) batch.Pipeline {
				return mining.NewUserCommits(s.client, mining.UserCommitsConfig{
					Since:    since,
					Until:    until,
					Cache:    s.cache,
					CacheTTL: a.cfg.Cache.TTL,
				})
			})
		},
	}

	opts.addFlags(cmd, LoginColumn)
	return cmd
}
