package main

import (
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model list cache",
	}
	cmd.AddCommand(newCacheClearCommand())
	return cmd
}

// newCacheClearCommand empties the configured cache. With the Redis backend
// this drops the list shared by every server instance.
func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			c, cacheCfg, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			data := map[string]interface{}{
				"cleared": true,
				"backend": cacheCfg.Backend,
			}
			return render(cmd.OutOrStdout(), data, func() *table {
				t := newTable("BACKEND", "CLEARED")
				t.addRow(cacheCfg.Backend, "true")
				return t
			})
		},
	}
}
