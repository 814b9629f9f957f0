package domain

import "fmt"

type GameID string

// Scope selects which roster subset a reveal rule exposes.
type Scope string

const (
	ScopeSelf   Scope = "self"
	ScopeAll    Scope = "all"
	ScopeCustom Scope = "custom"
)

type Party struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// RevealRule describes which other roles/parties a role is allowed to see.
type RevealRule struct {
	Scope           Scope    `json:"scope" yaml:"scope"`
	VisibleRoleIDs  []string `json:"visibleRoleIds" yaml:"visible_roles"`
	VisiblePartyIDs []string `json:"visiblePartyIds" yaml:"visible_parties"`
	IncludeSelf     bool     `json:"includeSelf" yaml:"include_self"`
}

type Role struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	PartyID string       `json:"partyId,omitempty" yaml:"party"`
	Reveals []RevealRule `json:"reveals,omitempty" yaml:"reveals"`
}

// GameDefinition is immutable after catalog load.
type GameDefinition struct {
	ID      GameID  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Parties []Party `json:"parties" yaml:"parties"`
	Roles   []Role  `json:"roles" yaml:"roles"`
}

// GameSummary is the catalog listing entry.
type GameSummary struct {
	ID        GameID `json:"id"`
	Name      string `json:"name"`
	RoleCount int    `json:"roleCount"`
}

func (g *GameDefinition) Summary() GameSummary {
	return GameSummary{ID: g.ID, Name: g.Name, RoleCount: len(g.Roles)}
}

// Role returns the role declaration for id, if present.
func (g *GameDefinition) Role(id string) (*Role, bool) {
	for i := range g.Roles {
		if g.Roles[i].ID == id {
			return &g.Roles[i], true
		}
	}
	return nil, false
}

// Validate enforces the definition invariants: non-empty id, unique role ids,
// and every role party reference declared.
func (g *GameDefinition) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game definition without id")
	}
	parties := make(map[string]struct{}, len(g.Parties))
	for _, p := range g.Parties {
		parties[p.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(g.Roles))
	for _, r := range g.Roles {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("game %s: duplicate role id %q", g.ID, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.PartyID != "" {
			if _, ok := parties[r.PartyID]; !ok {
				return fmt.Errorf("game %s: role %q references unknown party %q", g.ID, r.ID, r.PartyID)
			}
		}
	}
	return nil
}
