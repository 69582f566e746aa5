package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the read-only view of the catalog the battle core depends on.
type Meta interface {
	Get(id string) (*Unit, bool)
	ClassOf(id string) Class
	RankOf(id string) Rank
	KitOf(id string) *Kit
	IsSummoner(id string) bool
	Pool() []*Unit
}

// Catalog holds all known unit definitions keyed by id.
type Catalog struct {
	units map[string]*Unit
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{units: make(map[string]*Unit)}
}

// Register adds u, overwriting any existing entry with the same id.
//
// Precondition: u must not be nil and u.ID must not be empty.
func (c *Catalog) Register(u *Unit) {
	if u.Name == "" {
		u.Name = u.ID
	}
	c.units[u.ID] = u
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (*Unit, bool) {
	u, ok := c.units[id]
	return u, ok
}

// MustGet returns the definition for id or an error wrapping ErrUnknownUnit.
func (c *Catalog) MustGet(id string) (*Unit, error) {
	u, ok := c.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, id)
	}
	return u, nil
}

// ClassOf returns the class of id, or "" when unknown.
func (c *Catalog) ClassOf(id string) Class {
	if u, ok := c.units[id]; ok {
		return u.Class
	}
	return ""
}

// RankOf returns the rank of id, or "" when unknown.
func (c *Catalog) RankOf(id string) Rank {
	if u, ok := c.units[id]; ok {
		return u.Rank
	}
	return ""
}

// KitOf returns the kit of id, or nil when unknown.
func (c *Catalog) KitOf(id string) *Kit {
	if u, ok := c.units[id]; ok {
		return &u.Kit
	}
	return nil
}

// IsSummoner reports whether id is a Summoner with a summon kit.
func (c *Catalog) IsSummoner(id string) bool {
	u, ok := c.units[id]
	return ok && u.IsSummoner()
}

// Pool returns every deckable unit sorted by id.
func (c *Catalog) Pool() []*Unit {
	out := make([]*Unit, 0, len(c.units))
	for _, u := range c.units {
		if u.Deckable() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Leaders returns every leader-rank unit sorted by id.
func (c *Catalog) Leaders() []*Unit {
	var out []*Unit
	for _, u := range c.units {
		if u.IsLeader() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered units.
func (c *Catalog) Len() int { return len(c.units) }

// file is the on-disk shape of one catalog YAML file.
type file struct {
	Units []*Unit `yaml:"units"`
}

// Decode parses a catalog document from r into c.
//
// Postcondition: every unit in the document is registered, or an error is returned
// and c is unchanged.
func (c *Catalog) Decode(r io.Reader) error {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	for _, u := range f.Units {
		if err := validate(u); err != nil {
			return err
		}
	}
	for _, u := range f.Units {
		c.Register(u)
	}
	return nil
}

func validate(u *Unit) error {
	if u == nil || u.ID == "" {
		return errors.New("unit id must not be empty")
	}
	if u.Stats.HPMax <= 0 {
		return fmt.Errorf("unit %q: stats.hp must be > 0", u.ID)
	}
	if u.Stats.ARM < 0 || u.Stats.ARM > 1 || u.Stats.RES < 0 || u.Stats.RES > 1 {
		return fmt.Errorf("unit %q: arm and res must be within [0,1]", u.ID)
	}
	if u.Class == ClassSummoner && !u.IsSummoner() {
		return fmt.Errorf("unit %q: Summoner class requires a summon ult", u.ID)
	}
	return nil
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Catalog, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	c := New()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if err := c.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	}
	return c, nil
}
