package persona

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an identifier is not in the catalog.
var ErrNotFound = errors.New("agent not found")

// DefaultPatterns are the document name patterns recognised in a department.
var DefaultPatterns = []string{"*.md"}

const readmeName = "README.md"

// SkippedFile records a document or directory left out of the catalog.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Duplicate records a document whose identifier was taken over by a later one.
type Duplicate struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// LoadReport lists every degradation that happened while loading.
type LoadReport struct {
	RootMissing bool          `json:"rootMissing"`
	Skipped     []SkippedFile `json:"skipped,omitempty"`
	Degraded    []string      `json:"degraded,omitempty"`
	Duplicates  []Duplicate   `json:"duplicates,omitempty"`
}

// DepartmentCount is one row of Stats.
type DepartmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarises the catalog.
type Stats struct {
	TotalAgents         int               `json:"totalAgents"`
	Departments         int               `json:"departments"`
	DepartmentBreakdown []DepartmentCount `json:"departmentBreakdown"`
}

// Catalog is the read-only index of persona records. It is built once and
// safe for concurrent reads.
type Catalog struct {
	root        string
	personas    map[string]*Persona
	order       []string
	departments []string
	report      LoadReport
}

type loadOptions struct {
	logger   *zap.Logger
	patterns []string
}

// Option configures Load.
type Option func(*loadOptions)

// WithLogger sets the logger used for load warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPatterns overrides the recognised document name patterns.
func WithPatterns(patterns ...string) Option {
	return func(o *loadOptions) {
		if len(patterns) > 0 {
			o.patterns = patterns
		}
	}
}

// New builds a catalog from records that are already parsed. Departments are
// taken from the records in order.
func New(personas ...*Persona) *Catalog {
	c := newCatalog("")
	for _, p := range personas {
		c.addDepartment(p.Department)
		c.put(p)
	}
	return c
}

func newCatalog(root string) *Catalog {
	return &Catalog{
		root:     root,
		personas: make(map[string]*Persona),
	}
}

// Load scans root, treating every immediate subdirectory as a department and
// every matching file inside it as a persona document. Failures never abort
// the load: they are logged and recorded in the report.
func Load(root string, opts ...Option) *Catalog {
	o := loadOptions{logger: zap.NewNop(), patterns: DefaultPatterns}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With(zap.String("root", root))

	c := newCatalog(root)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		log.Warn("Agents path does not exist", zap.Error(err))
		c.report.RootMissing = true
		return c
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		log.Warn("Failed to read agents path", zap.Error(err))
		c.skip(root, err)
		return c
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == readmeName {
			continue
		}
		deptPath := filepath.Join(root, name)
		info, err := os.Stat(deptPath)
		if err != nil {
			log.Warn("Failed to stat department", zap.String("path", deptPath), zap.Error(err))
			c.skip(deptPath, err)
			continue
		}
		if !info.IsDir() {
			continue
		}
		c.addDepartment(name)
		c.loadDepartment(log, o.patterns, name, deptPath)
	}

	log.Info("Loaded agents",
		zap.Int("agents", len(c.order)),
		zap.Int("departments", len(c.departments)))

	return c
}

func (c *Catalog) loadDepartment(log *zap.Logger, patterns []string, department, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("Failed to read department", zap.String("department", department), zap.Error(err))
		c.skip(dir, err)
		return
	}

	for _, entry := range entries {
		if !matchesAny(patterns, entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping agent file", zap.String("path", path), zap.Error(err))
			c.skip(path, err)
			continue
		}

		p := Parse(content, department, path)
		if p.Degraded {
			log.Warn("Front matter parsing failed, using fallback",
				zap.String("path", path),
				zap.String("reason", p.DegradedReason))
			c.report.Degraded = append(c.report.Degraded, p.ID)
		}
		if prev, ok := c.personas[p.ID]; ok {
			log.Warn("Duplicate agent id, later document wins",
				zap.String("id", p.ID),
				zap.String("replaced", prev.FilePath),
				zap.String("path", path))
			c.report.Duplicates = append(c.report.Duplicates, Duplicate{ID: p.ID, Path: prev.FilePath})
		}
		c.put(p)
	}
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// put stores p; a record replacing an existing id keeps the original position.
func (c *Catalog) put(p *Persona) {
	if _, exists := c.personas[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.personas[p.ID] = p
}

func (c *Catalog) addDepartment(name string) {
	for _, d := range c.departments {
		if d == name {
			return
		}
	}
	c.departments = append(c.departments, name)
}

func (c *Catalog) skip(path string, err error) {
	c.report.Skipped = append(c.report.Skipped, SkippedFile{Path: path, Reason: err.Error()})
}

// Root returns the directory the catalog was loaded from.
func (c *Catalog) Root() string {
	return c.root
}

// All returns every record in load order.
func (c *Catalog) All() []*Persona {
	out := make([]*Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.personas[id])
	}
	return out
}

// Get looks up a record by identifier.
func (c *Catalog) Get(id string) (*Persona, error) {
	p, ok := c.personas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ByDepartment returns the records of one department in load order.
func (c *Catalog) ByDepartment(department string) []*Persona {
	return c.filter(func(p *Persona) bool {
		return p.Department == department
	})
}

// Departments returns the department names seen during load.
func (c *Catalog) Departments() []string {
	return append([]string(nil), c.departments...)
}

// Search returns the records whose name, description, role or department
// contains keyword, ignoring case.
func (c *Catalog) Search(keyword string) []*Persona {
	term := strings.ToLower(keyword)
	return c.filter(func(p *Persona) bool {
		return strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.Role), term) ||
			strings.Contains(strings.ToLower(p.Department), term)
	})
}

// Stats returns agent counts overall and per department.
func (c *Catalog) Stats() Stats {
	stats := Stats{
		TotalAgents:         len(c.order),
		Departments:         len(c.departments),
		DepartmentBreakdown: make([]DepartmentCount, 0, len(c.departments)),
	}
	for _, d := range c.departments {
		stats.DepartmentBreakdown = append(stats.DepartmentBreakdown, DepartmentCount{
			Name:  d,
			Count: len(c.ByDepartment(d)),
		})
	}
	return stats
}

// Report returns what was skipped, degraded or overwritten during load.
func (c *Catalog) Report() LoadReport {
	return c.report
}

func (c *Catalog) filter(keep func(*Persona) bool) []*Persona {
	out := make([]*Persona, 0)
	for _, id := range c.order {
		if p := c.personas[id]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}
