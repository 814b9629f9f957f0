// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxPlayerNameLen = 10

var (
	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
)

type PlayerID string

// Player is one room membership. It is owned exclusively by its Room;
// nothing outside the room mutates it.
type Player struct {
	ID           PlayerID `json:"id"`
	Name         string   `json:"name"`
	RoleID       string   `json:"-"`
	HasSubmitted bool     `json:"hasSubmittedRole"`
	Connected    bool     `json:"-"`
}

// NewPlayer validates and normalizes the display name and assigns a fresh id.
func NewPlayer(name string) (*Player, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	return &Player{ID: PlayerID(uuid.NewString()), Name: trimmed, Connected: true}, nil
}

// ValidateName returns the trimmed name or an error when it is empty or
// longer than MaxPlayerNameLen characters.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxPlayerNameLen {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}

// NormalizeName is the key used for case-insensitive name collision checks.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
