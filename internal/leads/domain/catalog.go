package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition describes one stage as published by the lead store.
type Definition struct {
	Key      string   `json:"id"`
	Label    string   `json:"label"`
	Aliases  []string `json:"aliases"`
	Terminal bool     `json:"terminal"`
	Position int      `json:"position"`
}

// Catalog resolves free-text stage labels to canonical stages. It is the only
// place alias lists are matched; a Catalog is immutable once built and safe
// for concurrent use.
type Catalog struct {
	labels  map[Stage]string
	aliases map[Stage][]string
	byLabel map[string]Stage
	byAlias map[string]Stage
}

// DefaultCatalog returns the built-in catalog used when the lead store's
// catalog is unavailable.
func DefaultCatalog() *Catalog {
	c := newCatalog()
	for _, s := range Stages() {
		c.addLabel(s, s.Label())
	}
	for _, s := range Stages() {
		c.addAlias(s, s.Key())
		for _, alias := range s.info().aliases {
			c.addAlias(s, alias)
		}
	}
	return c
}

// NewCatalog layers remote definitions on top of the built-in catalog.
// Definitions whose key is not a canonical stage are ignored: the stage set is
// fixed. A remote label replaces the display label while the built-in label
// stays accepted as an alias.
func NewCatalog(defs []Definition) *Catalog {
	base := DefaultCatalog()
	c := newCatalog()
	remote := make(map[Stage]Definition, len(defs))
	for _, def := range defs {
		if s, ok := StageFromKey(def.Key); ok {
			remote[s] = def
		}
	}

	for _, s := range Stages() {
		label := base.labels[s]
		if def, ok := remote[s]; ok && Normalize(def.Label) != "" {
			label = def.Label
		}
		c.addLabel(s, label)
	}
	for _, s := range Stages() {
		c.addAlias(s, s.Label())
		for _, alias := range base.aliases[s] {
			c.addAlias(s, alias)
		}
		for _, alias := range remote[s].Aliases {
			c.addAlias(s, alias)
		}
	}
	return c
}

// WithAliases returns a copy of c with extra aliases keyed by canonical stage
// key. Unknown keys are reported as an error.
func (c *Catalog) WithAliases(extra map[string][]string) (*Catalog, error) {
	out := newCatalog()
	for _, s := range Stages() {
		out.addLabel(s, c.labels[s])
	}
	for _, s := range Stages() {
		for _, alias := range c.aliases[s] {
			out.addAlias(s, alias)
		}
	}
	for key, aliases := range extra {
		s, ok := StageFromKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown stage key %q", key)
		}
		for _, alias := range aliases {
			out.addAlias(s, alias)
		}
	}
	return out, nil
}

func newCatalog() *Catalog {
	return &Catalog{
		labels:  make(map[Stage]string),
		aliases: make(map[Stage][]string),
		byLabel: make(map[string]Stage),
		byAlias: make(map[string]Stage),
	}
}

func (c *Catalog) addLabel(s Stage, label string) {
	c.labels[s] = label
	if n := Normalize(label); n != "" {
		if _, taken := c.byLabel[n]; !taken {
			c.byLabel[n] = s
		}
	}
}

// addAlias keeps the first stage that claimed an alias. An alias equal to
// another stage's label is dropped because labels are matched first.
func (c *Catalog) addAlias(s Stage, alias string) {
	n := Normalize(alias)
	if n == "" {
		return
	}
	if owner, ok := c.byLabel[n]; ok && owner != s {
		return
	}
	if _, taken := c.byAlias[n]; taken {
		return
	}
	c.byAlias[n] = s
	c.aliases[s] = append(c.aliases[s], alias)
}

// Lookup resolves label without falling back: exact canonical label first,
// then aliases (canonical keys are aliases too).
func (c *Catalog) Lookup(label string) (Stage, bool) {
	n := Normalize(label)
	if n == "" {
		return 0, false
	}
	if s, ok := c.byLabel[n]; ok {
		return s, true
	}
	if s, ok := c.byAlias[n]; ok {
		return s, true
	}
	return 0, false
}

// Resolve maps any label to exactly one stage. Unknown or empty labels
// resolve to StageUncategorized.
func (c *Catalog) Resolve(label string) Stage {
	if s, ok := c.Lookup(label); ok {
		return s
	}
	return StageUncategorized
}

// SameStage reports whether two labels resolve to the same canonical key.
func (c *Catalog) SameStage(a, b string) bool {
	return c.Resolve(a) == c.Resolve(b)
}

// Label returns the display label of s in this catalog.
func (c *Catalog) Label(s Stage) string {
	if label, ok := c.labels[s]; ok {
		return label
	}
	return s.Label()
}

// Aliases returns the accepted aliases of s.
func (c *Catalog) Aliases(s Stage) []string {
	out := make([]string, len(c.aliases[s]))
	copy(out, c.aliases[s])
	return out
}

// Definitions returns the catalog in board order.
func (c *Catalog) Definitions() []Definition {
	stages := Stages()
	defs := make([]Definition, 0, len(stages))
	for _, s := range stages {
		defs = append(defs, Definition{
			Key:      s.Key(),
			Label:    c.Label(s),
			Aliases:  c.Aliases(s),
			Terminal: s.IsTerminal(),
			Position: s.Position(),
		})
	}
	return defs
}

type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliasFile reads extra aliases from a YAML file of the form
//
//	aliases:
//	  won: ["cerrado ok", "venta hecha"]
func LoadAliasFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Aliases, nil
}
