package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/mining"
)

func (a *app) commitsCommand() *cobra.Command {
	opts := &mineOptions{}
	var allBranches bool

	cmd := &cobra.Command{
		Use:   "commits [repository...]",
		Short: "Collect the commit history of repositories",
		Long: `Collect one row per commit of each repository's default branch, or of every
branch with --all-branches. Repositories are given as URLs
(https://github.com/owner/repo) or owner/repo.`,
		Example: `  forge-miner commits octocat/hello-world
  forge-miner commits -i repos.csv --all-branches --since 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, until, err := opts.timeRange()
			if err != nil {
				return err
			}

			return a.mine(cmd, args, opts, mining.CommitHeaders(), validRepositoryURL, func(s *services) batch.Pipeline {
				return mining.NewCommits(s.client, mining.CommitsConfig{
					AllBranches: allBranches,
					Since:       since,
					Until:       until,
					Cache:       s.cache,
					CacheTTL:    a.cfg.Cache.TTL,
				})
			})
		},
	}

	opts.addFlags(cmd, RepositoryColumn)
	cmd.Flags().BoolVar(&allBranches, "all-branches", false, "walk every branch instead of the default branch")
	return cmd
}
