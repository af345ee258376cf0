package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/store"
)

// ErrRedisRequired is returned by commands that only work against Redis.
var ErrRedisRequired = errors.New("this command needs redis (set --redis-addr or FORGE_MINER_REDIS_ADDR)")

func (a *app) openStore(ctx context.Context) (*store.RedisStore, func(), error) {
	rdb, err := a.connectRedis(ctx)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return nil, nil, ErrRedisRequired
	}
	return store.NewRedisStore(rdb, a.cfg.Store.TTL), func() { _ = rdb.Close() }, nil
}

func (a *app) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect run reports stored in Redis",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			ids, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Run", "Started", "Rows", "Invalid", "Errors", "Cancelled"})
			for _, id := range ids {
				r, err := st.Load(cmd.Context(), id)
				if errors.Is(err, store.ErrNotFound) {
					continue // expired between List and Load
				}
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					len(r.Rows), len(r.Invalid), len(r.Errors), r.Cancelled})
			}
			fmt.Fprintln(a.stdout, t.Render())
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	var format string
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the result table of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			st, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			r, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := renderReport(a.stdout, r, format); err != nil {
				return err
			}
			renderRunSummary(a.stderr, r)
			return nil
		},
	}
	show.Flags().StringVarP(&format, "format", "f", FormatTable, "output format: table, csv, markdown or json")

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
