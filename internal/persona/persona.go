// Package persona loads agent persona documents from disk and indexes them
// into an immutable catalog.
//
// A persona document is a markdown file with an optional YAML front-matter
// block. The body of the document becomes the persona's system prompt.
package persona

// Persona is a normalized persona record. Records handed out by a Catalog are
// shared between callers and must not be modified.
type Persona struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Department   string                 `json:"department"`
	Description  string                 `json:"description"`
	Role         string                 `json:"role"`
	SystemPrompt string                 `json:"systemPrompt"`
	Metadata     map[string]interface{} `json:"metadata"`
	Color        string                 `json:"color"`
	Tools        []string               `json:"tools,omitempty"`
	Filename     string                 `json:"filename"`
	FilePath     string                 `json:"filePath,omitempty"`

	// Degraded is set when the front matter could not be decoded and the
	// record was built from the filename and raw text only.
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"-"`
}

// Summary is the prompt-free view of a persona used in listings.
type Summary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Tools       []string `json:"tools,omitempty"`
	Department  string   `json:"department,omitempty"`
}

// Summary returns the listing view of p.
func (p *Persona) Summary() Summary {
	return Summary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		Tools:       p.Tools,
		Department:  p.Department,
	}
}

// GenerateID builds the catalog identifier for a document.
func GenerateID(department, basename string) string {
	return department + "-" + basename
}
