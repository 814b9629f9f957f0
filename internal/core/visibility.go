package core

import "github.com/QinjianZheng/who-is-my-friend/internal/domain"

// ResolveReveal computes the roster subset the acting player's role is
// allowed to see. Pure: no room state is touched, so the view can be
// recomputed on every delivery.
//
// A role with no reveal rules defaults to self scope — an explicit default,
// not a fallthrough. A nil game (catalog desync) yields an empty view rather
// than an error. Output preserves roster insertion order.
func ResolveReveal(game *domain.GameDefinition, roster []*domain.Player, acting *domain.Player) []VisiblePlayer {
	out := make([]VisiblePlayer, 0)
	if game == nil {
		return out
	}

	rules := []domain.RevealRule{{Scope: domain.ScopeSelf}}
	if role, ok := game.Role(acting.RoleID); ok && len(role.Reveals) > 0 {
		rules = role.Reveals
	}

	for _, p := range roster {
		if visibleTo(game, rules, acting, p) {
			out = append(out, VisiblePlayer{PlayerID: p.ID, Name: p.Name, RoleID: p.RoleID})
		}
	}
	return out
}

func visibleTo(game *domain.GameDefinition, rules []domain.RevealRule, acting, target *domain.Player) bool {
	for _, rule := range rules {
		switch rule.Scope {
		case domain.ScopeAll:
			return true
		case domain.ScopeSelf:
			if target.ID == acting.ID {
				return true
			}
		default:
			// Custom scope: self-visibility only via the explicit flag.
			if rule.IncludeSelf && target.ID == acting.ID {
				return true
			}
			if target.RoleID != "" && contains(rule.VisibleRoleIDs, target.RoleID) {
				return true
			}
			if role, ok := game.Role(target.RoleID); ok && role.PartyID != "" && contains(rule.VisiblePartyIDs, role.PartyID) {
				return true
			}
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
