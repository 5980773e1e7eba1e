// Package checklist loads the reference scripts the evaluators check transcripts against.
package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ai-script-adherence-service/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// Point is one numbered item of a reference script.
type Point struct {
	ID         string   `yaml:"id" json:"id"`
	Label      string   `yaml:"label" json:"label"`
	Text       string   `yaml:"text" json:"text"`
	KeyPhrases []string `yaml:"key_phrases,omitempty" json:"keyPhrases,omitempty"`
}

// ReferenceChecklist is a topical script an agent is expected to follow.
type ReferenceChecklist struct {
	ID       string  `yaml:"id" json:"id"`
	Title    string  `yaml:"title" json:"title"`
	Focus    string  `yaml:"focus" json:"focus"`
	Preamble string  `yaml:"preamble,omitempty" json:"preamble,omitempty"`
	Points   []Point `yaml:"points" json:"points"`
}

type file struct {
	Checklists []ReferenceChecklist `yaml:"checklists"`
}

// Set is an ordered, immutable collection of checklists.
type Set struct {
	checklists []ReferenceChecklist
	byID       map[string]int
}

// Default returns the embedded set of eight reference scripts.
func Default() *Set {
	set, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded checklists are invalid: %v", err))
	}
	return set
}

// Load reads and validates a checklist file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist file %s: %v: %w", path, err, models.ErrConfigurationMissing)
	}
	return Parse(data)
}

// Parse decodes and validates checklist YAML.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse checklists: %w", err)
	}
	return NewSet(f.Checklists)
}

// NewSet builds a validated set from checklists in the given order.
func NewSet(checklists []ReferenceChecklist) (*Set, error) {
	s := &Set{
		checklists: append([]ReferenceChecklist(nil), checklists...),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate rejects empty sets, blank or duplicate IDs, duplicate titles and
// checklists without point text, and indexes the set by ID. Only NewSet calls it.
func (s *Set) validate() error {
	if len(s.checklists) == 0 {
		return fmt.Errorf("no checklists defined: %w", models.ErrInvalidInput)
	}

	s.byID = make(map[string]int, len(s.checklists))
	titles := make(map[string]string, len(s.checklists))
	for i, c := range s.checklists {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("checklist %d has no id: %w", i, models.ErrInvalidInput)
		}
		if _, dup := s.byID[id]; dup {
			return fmt.Errorf("duplicate checklist id %q: %w", id, models.ErrInvalidInput)
		}
		// Titles name the checklist in the instruction's topic line.
		if title := strings.ToLower(strings.TrimSpace(c.Title)); title != "" {
			if other, dup := titles[title]; dup {
				return fmt.Errorf("checklists %q and %q share title %q: %w", other, id, c.Title, models.ErrInvalidInput)
			}
			titles[title] = id
		}
		if len(c.Points) == 0 {
			return fmt.Errorf("checklist %q has no points: %w", id, models.ErrInvalidInput)
		}
		for j, p := range c.Points {
			if strings.TrimSpace(p.Text) == "" {
				return fmt.Errorf("checklist %q point %d has no text: %w", id, j+1, models.ErrInvalidInput)
			}
		}
		s.byID[id] = i
	}
	return nil
}

// Get returns the checklist with the given id.
func (s *Set) Get(id string) (ReferenceChecklist, bool) {
	i, ok := s.byID[id]
	if !ok {
		return ReferenceChecklist{}, false
	}
	return s.checklists[i], true
}

// FindByTitle returns the checklist with the given title, ignoring case.
func (s *Set) FindByTitle(title string) (ReferenceChecklist, bool) {
	for _, c := range s.checklists {
		if strings.EqualFold(c.Title, strings.TrimSpace(title)) {
			return c, true
		}
	}
	return ReferenceChecklist{}, false
}

// IDs returns checklist ids in configured order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.checklists))
	for i, c := range s.checklists {
		ids[i] = c.ID
	}
	return ids
}

// All returns a copy of every checklist in configured order.
func (s *Set) All() []ReferenceChecklist {
	out := make([]ReferenceChecklist, len(s.checklists))
	copy(out, s.checklists)
	return out
}

// Len returns the number of checklists.
func (s *Set) Len() int {
	return len(s.checklists)
}

// Select returns the requested checklists in configured order, not request order.
// An empty selection returns every checklist. Unknown ids fail the whole selection.
func (s *Set) Select(ids []string) ([]ReferenceChecklist, error) {
	if len(ids) == 0 {
		return s.All(), nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			return nil, fmt.Errorf("unknown checklist topic %q: %w", id, models.ErrInvalidInput)
		}
		wanted[id] = true
	}

	out := make([]ReferenceChecklist, 0, len(wanted))
	for _, c := range s.checklists {
		if wanted[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
