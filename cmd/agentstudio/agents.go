package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darkproduction721/AI-Agent-Studio/internal/persona"
)

func newAgentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent"},
		Short:   "Inspect the agent catalog",
	}
	cmd.AddCommand(newAgentsListCommand())
	cmd.AddCommand(newAgentsShowCommand())
	cmd.AddCommand(newAgentsSearchCommand())
	cmd.AddCommand(newAgentsDepartmentsCommand())
	cmd.AddCommand(newAgentsStatsCommand())
	return cmd
}

func summaryTable(personas []*persona.Persona) func() *table {
	return func() *table {
		t := newTable("ID", "NAME", "DEPARTMENT", "DESCRIPTION")
		for _, p := range personas {
			t.addRow(p.ID, p.Name, p.Department, truncate(p.Description, 60))
		}
		return t
	}
}

func summaries(personas []*persona.Persona) []persona.Summary {
	out := make([]persona.Summary, 0, len(personas))
	for _, p := range personas {
		out = append(out, p.Summary())
	}
	return out
}

func newAgentsListCommand() *cobra.Command {
	var department string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			catalog := a.loadCatalog()
			agents := catalog.All()
			if department != "" {
				agents = catalog.ByDepartment(department)
			}
			return render(cmd.OutOrStdout(), summaries(agents), summaryTable(agents))
		},
	}
	cmd.Flags().StringVarP(&department, "department", "d", "", "Only list agents of this department")
	return cmd
}

func newAgentsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show agent details including the system prompt",
		Args:  cobra.ExactArgs(1),
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
			return render(cmd.OutOrStdout(), agent, func() *table {
				t := newTable("FIELD", "VALUE")
				t.addRow("id", agent.ID)
				t.addRow("name", agent.Name)
				t.addRow("department", agent.Department)
				t.addRow("description", truncate(agent.Description, 80))
				t.addRow("color", agent.Color)
				t.addRow("tools", strings.Join(agent.Tools, ", "))
				t.addRow("file", agent.FilePath)
				t.addRow("prompt", truncate(agent.SystemPrompt, 80))
				return t
			})
		},
	}
}

func newAgentsSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search agents by name, description or department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			agents := a.loadCatalog().Search(args[0])
			return render(cmd.OutOrStdout(), summaries(agents), summaryTable(agents))
		},
	}
}

func newAgentsDepartmentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.loadCatalog().Stats()
			return render(cmd.OutOrStdout(), stats.DepartmentBreakdown, func() *table {
				t := newTable("DEPARTMENT", "AGENTS")
				for _, d := range stats.DepartmentBreakdown {
					t.addRow(d.Name, strconv.Itoa(d.Count))
				}
				return t
			})
		},
	}
}

func newAgentsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics and load problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			catalog := a.loadCatalog()
			stats := catalog.Stats()
			report := catalog.Report()
			data := map[string]interface{}{
				"stats":  stats,
				"report": report,
			}
			return render(cmd.OutOrStdout(), data, func() *table {
				t := newTable("METRIC", "VALUE")
				t.addRow("agents", strconv.Itoa(stats.TotalAgents))
				t.addRow("departments", strconv.Itoa(stats.Departments))
				t.addRow("skipped", strconv.Itoa(len(report.Skipped)))
				t.addRow("degraded", strconv.Itoa(len(report.Degraded)))
				t.addRow("duplicates", strconv.Itoa(len(report.Duplicates)))
				t.addRow("root missing", strconv.FormatBool(report.RootMissing))
				return t
			})
		},
	}
}
