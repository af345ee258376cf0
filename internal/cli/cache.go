package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/cache"
)

func (a *app) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis page cache",
	}

	purge := &cobra.Command{
		Use:   "purge [resource]",
		Short: "Delete cached pages of one resource, or of all resources",
		Long: `Delete cached pages. Resources are profile, contributions, repositories,
default_branch, branches and commits. Without an argument the whole page
cache is purged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := a.connectRedis(cmd.Context())
			if err != nil {
				return err
			}
			if rdb == nil {
				return ErrRedisRequired
			}
			defer func() { _ = rdb.Close() }()

			resource := ""
			if len(args) == 1 {
				resource = args[0]
			}
			n, err := cache.NewManager(rdb).Purge(cmd.Context(), resource)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Purged %d cached pages\n", n)
			return nil
		},
	}

	cmd.AddCommand(purge)
	return cmd
}
