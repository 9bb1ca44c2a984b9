package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Query the completion backend's models",
	}
	cmd.AddCommand(newModelsListCommand())
	cmd.AddCommand(newModelsPingCommand())
	return cmd
}

func newModelsListCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List free models offered by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			accessor, c, err := a.newAccessor(cmd.Context(), a.newBackend())
			if err != nil {
				return err
			}
			defer c.Close()

			if refresh {
				if err := accessor.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("failed to drop cached model list: %w", err)
				}
			}

			models, err := accessor.ListFreeModels(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), models, func() *table {
				t := newTable("ID", "NAME", "CONTEXT")
				for _, m := range models {
					t.addRow(m.ID, m.Name, strconv.FormatInt(m.ContextLength, 10))
				}
				return t
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore a cached model list and fetch from the backend")
	return cmd
}

func newModelsPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a short test completion to the default model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			orch := a.newOrchestrator(a.newBackend())
			connected := orch.TestConnection(cmd.Context())
			data := map[string]interface{}{
				"connected": connected,
				"model":     orch.DefaultModel(),
			}
			return render(cmd.OutOrStdout(), data, func() *table {
				t := newTable("MODEL", "CONNECTED")
				t.addRow(orch.DefaultModel(), strconv.FormatBool(connected))
				return t
			})
		},
	}
}
