// Package catalog loads the static game definitions once at startup and
// serves them as a read-only lookup table keyed by game id.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

type Catalog struct {
	games map[domain.GameID]*domain.GameDefinition
	order []domain.GameID
}

// Load reads every *.yaml file under dir as one game definition.
// The catalog is never mutated after Load returns.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read games dir: %w", err)
	}

	c := &Catalog{games: make(map[domain.GameID]*domain.GameDefinition)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var def domain.GameDefinition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", path, err)
		}
		if _, dup := c.games[def.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q (%s)", def.ID, path)
		}
		c.games[def.ID] = &def
		c.order = append(c.order, def.ID)
		log.Info().Str("module", "catalog").Str("game", string(def.ID)).Int("roles", len(def.Roles)).Msg("loaded game definition")
	}

	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	log.Info().Str("module", "catalog").Int("games", len(c.games)).Msg("catalog ready")
	return c, nil
}

func (c *Catalog) Get(id domain.GameID) (*domain.GameDefinition, bool) {
	g, ok := c.games[id]
	return g, ok
}

func (c *Catalog) List() []domain.GameSummary {
	out := make([]domain.GameSummary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.games[id].Summary())
	}
	return out
}
