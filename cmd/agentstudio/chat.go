package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darkproduction721/AI-Agent-Studio/internal/orchestrator"
)

func newChatCommand() *cobra.Command {
	var (
		model       string
		maxTokens   int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "chat <agent-id> <message...>",
		Short: "Send one message to an agent and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			agent, err := a.loadCatalog().Get(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			req := orchestrator.Request{
				SystemPrompt: agent.SystemPrompt,
				Message:      strings.Join(args[1:], " "),
				Model:        model,
			}
			if cmd.Flags().Changed("max-tokens") {
				req.Options.MaxTokens = &maxTokens
			}
			if cmd.Flags().Changed("temperature") {
				req.Options.Temperature = &temperature
			}

			result := a.newOrchestrator(a.newBackend()).Complete(cmd.Context(), req)
			if !result.OK() {
				return fmt.Errorf("AI model temporarily unavailable: %s", result.Failure.Message)
			}

			if outputFormat == "json" {
				return outputJSON(cmd.OutOrStdout(), result.Success)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", headerStyle.Render(agent.Name+" ("+result.Success.ModelUsed+")"), result.Success.Text)
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (defaults to the configured default model)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	return cmd
}
