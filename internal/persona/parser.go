package persona

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	frontMatterDelimiter = "---"

	// DefaultColor is used when a document declares no color.
	DefaultColor = "gray"

	// DefaultDescription is used when no plain-text line can be found.
	DefaultDescription = "AI Agent"

	maxDescriptionLength = 200
	ellipsis             = "..."
)

// fallbackTools is the capability list given to degraded records.
var fallbackTools = []string{"Write", "Read"}

var errUnterminatedFrontMatter = errors.New("front matter is not terminated")

// Parse turns one persona document into a record. It never fails: when the
// front matter cannot be decoded the record is built from the filename and
// the raw document text, and Degraded is set.
//
// source is the document path; its base name (without extension) feeds the
// identifier and the name/role fallbacks.
func Parse(content []byte, department, source string) *Persona {
	text := strings.TrimPrefix(string(content), "\ufeff")
	filename := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	meta, body, err := splitFrontMatter(text)
	if err != nil {
		return degradedPersona(text, department, source, filename, err)
	}

	p := &Persona{
		ID:           GenerateID(department, filename),
		Name:         stringValue(meta, "name"),
		Department:   department,
		Description:  stringValue(meta, "description"),
		Role:         stringValue(meta, "role"),
		SystemPrompt: body,
		Metadata:     meta,
		Color:        stringValue(meta, "color"),
		Tools:        toolsValue(meta["tools"]),
		Filename:     filename,
		FilePath:     source,
	}
	if p.Name == "" {
		p.Name = FormatName(filename)
	}
	if p.Description == "" {
		p.Description = ExtractDescription(body)
	}
	if p.Role == "" {
		p.Role = strings.ReplaceAll(filename, "-", " ")
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	return p
}

func degradedPersona(text, department, source, filename string, cause error) *Persona {
	description := ExtractDescription(text)
	tools := append([]string(nil), fallbackTools...)
	return &Persona{
		ID:           GenerateID(department, filename),
		Name:         filename,
		Department:   department,
		Description:  description,
		Role:         strings.ReplaceAll(filename, "-", " "),
		SystemPrompt: text,
		Metadata: map[string]interface{}{
			"name":        filename,
			"description": description,
			"color":       DefaultColor,
			"tools":       []interface{}{"Write", "Read"},
		},
		Color:          DefaultColor,
		Tools:          tools,
		Filename:       filename,
		FilePath:       source,
		Degraded:       true,
		DegradedReason: cause.Error(),
	}
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. Documents without the block yield empty metadata and the whole text
// as body.
func splitFrontMatter(text string) (map[string]interface{}, string, error) {
	meta := map[string]interface{}{}

	lines := strings.SplitAfter(text, "\n")
	if len(lines) == 0 || trimLineEnding(lines[0]) != frontMatterDelimiter {
		return meta, text, nil
	}

	offset := len(lines[0])
	for _, line := range lines[1:] {
		if trimLineEnding(line) == frontMatterDelimiter {
			matter := text[len(lines[0]):offset]
			body := text[offset+len(line):]

			if strings.TrimSpace(matter) != "" {
				if err := yaml.Unmarshal([]byte(matter), &meta); err != nil {
					return nil, "", fmt.Errorf("invalid front matter: %w", err)
				}
				if meta == nil {
					meta = map[string]interface{}{}
				}
			}
			return meta, body, nil
		}
		offset += len(line)
	}

	return nil, "", errUnterminatedFrontMatter
}

func trimLineEnding(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// ExtractDescription returns the first body line that is not blank, a
// heading or a list item, truncated to 200 characters.
func ExtractDescription(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "*") ||
			strings.HasPrefix(trimmed, "-") {
			continue
		}
		return truncate(trimmed, maxDescriptionLength)
	}
	return DefaultDescription
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + ellipsis
}

// FormatName turns a file basename such as "backend-architect" into
// "Backend Architect".
func FormatName(filename string) string {
	var b strings.Builder
	prevWord := false
	for _, r := range strings.ReplaceAll(filename, "-", " ") {
		word := isWordRune(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevWord = word
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func stringValue(meta map[string]interface{}, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return ""
	}
	return fmt.Sprint(v)
}

// toolsValue accepts either a YAML list or a comma separated string.
func toolsValue(v interface{}) []string {
	var tools []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tools = append(tools, part)
			}
		}
	case []interface{}:
		for _, item := range t {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				tools = append(tools, s)
			}
		}
	}
	return tools
}
