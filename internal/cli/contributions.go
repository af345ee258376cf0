package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/mining"
)

func (a *app) contributionsCommand() *cobra.Command {
	opts := &mineOptions{}
	var languages []string

	cmd := &cobra.Command{
		Use:   "contributions [login...]",
		Short: "Collect profile, contribution and language statistics per user",
		Long: `Collect one row per GitHub login: profile counters, contribution totals and
per-category repository language sizes (owned or collaborating, original or
forked).

With --since/--until, contribution totals cover the range and only
repositories created inside it are counted.`,
		Example: `  forge-miner contributions octocat
  forge-miner contributions -i users.csv --languages Go,Rust -f csv -o out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, until, err := opts.timeRange()
			if err != nil {
				return err
			}

			return a.mine(cmd, args, opts, mining.ContributionsHeaders(), validLogin, func(s *services) batch.Pipeline {
				return mining.NewContributions(s.client, mining.ContributionsConfig{
					Since:     since,
					Until:     until,
					Languages: languages,
					Cache:     s.cache,
					CacheTTL:  a.cfg.Cache.TTL,
				})
			})
		},
	}

	opts.addFlags(cmd, LoginColumn)
	cmd.Flags().StringSliceVarP(&languages, "languages", "l", []string{mining.AllLanguages},
		"languages summed into the selected-size columns (\"All\" selects every language)")
	return cmd
}
