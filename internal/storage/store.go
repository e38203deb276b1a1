package storage

import (
	"errors"

	"github.com/klayza/Fractal/internal/character"
	"github.com/klayza/Fractal/internal/profile"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrNoSDPrompt        = errors.New("character has no image prompt")
)

// Turn is one conversation history entry.
type Turn struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Msg  string `json:"msg"`
}

// Store is the persistence surface for histories, profiles, and
// character cards. Implementations auto-create missing per-user
// records with defaults; only character card lookups can report
// "not found".
type Store interface {
	LoadHistory(userID int64, char string) ([]Turn, error)
	AppendHistory(userID int64, char string, turns ...Turn) error
	ClearHistory(userID int64, char string) error

	LoadUserProfile(userID int64) (*profile.UserProfile, error)
	SaveUserProfile(userID int64, p *profile.UserProfile) error

	LoadRuntimeProfile(userID int64) (*profile.RuntimeProfile, error)
	SaveRuntimeProfile(userID int64, r *profile.RuntimeProfile) error
	ResetRuntimeProfile(userID int64) (*profile.RuntimeProfile, error)

	// LoadCharacterCard reads the user's instantiated card, or the
	// global template when userID is 0.
	LoadCharacterCard(userID int64, char string) (*character.Card, error)
	InstantiateCharacter(userID int64, char string) error
	AvailableCharacters() ([]string, error)

	SystemPrompt() (string, error)
	SDPrompt(userID int64, char string) (positive, negative string, err error)
	SDPayload(kind string) (map[string]any, error)
}
