package persona

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CompleteFrontMatter(t *testing.T) {
	doc := `---
name: Backend Architect
description: Designs scalable APIs
role: API designer
color: blue
tools: Write, Read, Bash
---
I design APIs.

More text.
`
	p := Parse([]byte(doc), "engineering", "agents/engineering/backend-architect.md")

	want := &Persona{
		ID:           "engineering-backend-architect",
		Name:         "Backend Architect",
		Department:   "engineering",
		Description:  "Designs scalable APIs",
		Role:         "API designer",
		SystemPrompt: "I design APIs.\n\nMore text.\n",
		Metadata: map[string]interface{}{
			"name":        "Backend Architect",
			"description": "Designs scalable APIs",
			"role":        "API designer",
			"color":       "blue",
			"tools":       "Write, Read, Bash",
		},
		Color:    "blue",
		Tools:    []string{"Write", "Read", "Bash"},
		Filename: "backend-architect",
		FilePath: "agents/engineering/backend-architect.md",
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Fallbacks(t *testing.T) {
	doc := "---\ncolor: green\n---\n# Heading\n\n- bullet\n* star\nFirst real line.\n"
	p := Parse([]byte(doc), "design", "ui-designer.md")

	assert.Equal(t, "Ui Designer", p.Name)
	assert.Equal(t, "ui designer", p.Role)
	assert.Equal(t, "First real line.", p.Description)
	assert.Equal(t, "green", p.Color)
	assert.Empty(t, p.Tools)
	assert.False(t, p.Degraded)
}

func TestParse_NoFrontMatter(t *testing.T) {
	doc := "You are a helpful tester.\n"
	p := Parse([]byte(doc), "testing", "qa-engineer.md")

	assert.Equal(t, "Qa Engineer", p.Name)
	assert.Equal(t, DefaultColor, p.Color)
	assert.Equal(t, "You are a helpful tester.", p.Description)
	assert.Equal(t, doc, p.SystemPrompt)
	assert.Empty(t, p.Metadata)
	assert.False(t, p.Degraded)
}

func TestParse_MalformedFrontMatter(t *testing.T) {
	doc := "---\nname: [unclosed\ncolor: red\n---\nWrites release notes.\n"
	p := Parse([]byte(doc), "marketing", "release-writer.md")

	require.True(t, p.Degraded)
	assert.NotEmpty(t, p.DegradedReason)
	assert.Equal(t, "marketing-release-writer", p.ID)
	assert.Equal(t, "release-writer", p.Name)
	assert.Equal(t, "release writer", p.Role)
	assert.Equal(t, DefaultColor, p.Color)
	assert.Equal(t, []string{"Write", "Read"}, p.Tools)
	assert.Equal(t, "name: [unclosed", p.Description)
	assert.Equal(t, doc, p.SystemPrompt)
}

func TestParse_UnterminatedFrontMatter(t *testing.T) {
	doc := "---\nname: Lost\nNo closing delimiter here.\n"
	p := Parse([]byte(doc), "ops", "lost.md")

	assert.True(t, p.Degraded)
	assert.Equal(t, DefaultColor, p.Color)
	assert.Equal(t, "name: Lost", p.Description)
}

func TestParse_NonMappingFrontMatter(t *testing.T) {
	doc := "---\n- just\n- a list\n---\nBody line.\n"
	p := Parse([]byte(doc), "ops", "listy.md")

	assert.True(t, p.Degraded)
	assert.Equal(t, "Body line.", p.Description)
}

func TestParse_ToolsList(t *testing.T) {
	doc := "---\ntools:\n  - Grep\n  - WebFetch\n---\nBody\n"
	p := Parse([]byte(doc), "research", "scout.md")

	assert.Equal(t, []string{"Grep", "WebFetch"}, p.Tools)
}

func TestParse_CRLF(t *testing.T) {
	doc := "---\r\nname: Windows Agent\r\n---\r\nHello there.\r\n"
	p := Parse([]byte(doc), "ops", "win.md")

	assert.False(t, p.Degraded)
	assert.Equal(t, "Windows Agent", p.Name)
	assert.Equal(t, "Hello there.", p.Description)
}

func TestExtractDescription(t *testing.T) {
	long := strings.Repeat("a", 250)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "first plain line", body: "# Title\n\nPlain line\nSecond", want: "Plain line"},
		{name: "skips bullets", body: "- one\n* two\nthree", want: "three"},
		{name: "trims whitespace", body: "   padded line   ", want: "padded line"},
		{name: "truncates long line", body: long, want: strings.Repeat("a", 200) + "..."},
		{name: "exactly 200", body: strings.Repeat("b", 200), want: strings.Repeat("b", 200)},
		{name: "nothing usable", body: "# only\n- headings\n\n", want: DefaultDescription},
		{name: "empty", body: "", want: DefaultDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDescription(tt.body))
		})
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"backend-architect", "Backend Architect"},
		{"ai-engineer", "Ai Engineer"},
		{"devops-automator-2", "Devops Automator 2"},
		{"already Spaced", "Already Spaced"},
		{"snake_case-name", "Snake_case Name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatName(tt.in))
		})
	}
}

func TestSummaryOmitsPrompt(t *testing.T) {
	p := Parse([]byte("---\nname: X\n---\nsecret prompt"), "d", "x.md")
	s := p.Summary()

	if diff := cmp.Diff(Summary{ID: "d-x", Name: "X", Description: "secret prompt", Color: DefaultColor, Department: "d"}, s,
		cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}
