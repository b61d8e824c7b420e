// Package manifest loads the batch manifest naming which patient
// documents to process and which repair action each one needs. Two
// forms are accepted: a plain newline-delimited identifier list (the
// historical hand-off format from the hospitals) and a declarative
// YAML mapping of identifier to action.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mode1990/mtb-harmonizer/internal/jsonfix"
)

// ActionSkip marks an entry that should be listed but not processed.
const ActionSkip = "skip"

var (
	// ErrEmptyManifest indicates the manifest contained no entries.
	ErrEmptyManifest = errors.New("manifest contains no entries")

	// ErrMissingID indicates a YAML entry without an identifier.
	ErrMissingID = errors.New("manifest entry is missing an id")
)

// Entry is one identifier to process and its repair action. An empty
// action inherits the manifest default.
type Entry struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
}

// Manifest is an ordered set of entries. Order is the processing
// order; duplicates collapse to the first occurrence.
type Manifest struct {
	DefaultAction string  `yaml:"default_action"`
	Entries       []Entry `yaml:"entries"`
}

// Load reads a manifest file. Files ending in .yaml or .yml are parsed
// as the declarative form; anything else is read as a plain identifier
// list with one identifier per line ('#' starts a comment).
func Load(path string) (*Manifest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadPlain(path)
	}
}

func loadPlain(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	m := &Manifest{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.Entries = append(m.Entries, Entry{ID: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	return finish(m, path)
}

func loadYAML(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return finish(m, path)
}

// finish validates actions, applies the default, and collapses
// duplicate identifiers to their first occurrence.
func finish(m *Manifest, path string) (*Manifest, error) {
	if m.DefaultAction == "" {
		m.DefaultAction = string(jsonfix.StrategyAuto)
	}
	if err := validAction(m.DefaultAction); err != nil {
		return nil, fmt.Errorf("manifest %s: default_action: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Entries))
	out := m.Entries[:0]
	for i, e := range m.Entries {
		if e.ID == "" {
			return nil, fmt.Errorf("manifest %s: entry %d: %w", path, i+1, ErrMissingID)
		}
		if e.Action == "" {
			e.Action = m.DefaultAction
		}
		if err := validAction(e.Action); err != nil {
			return nil, fmt.Errorf("manifest %s: entry %q: %w", path, e.ID, err)
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	m.Entries = out

	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, ErrEmptyManifest)
	}
	return m, nil
}

func validAction(action string) error {
	if action == ActionSkip {
		return nil
	}
	_, err := jsonfix.ParseStrategy(action)
	return err
}
