package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klayza/Fractal/internal/character"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/profile"
)

// FileStore persists everything as JSON files under a root directory:
//
//	Data/<id>/Runtime.json
//	Data/<id>/User.json
//	Data/<id>/Characters/<char>/History.json
//	Data/<id>/Characters/<char>/CharacterCard.json
//	Data/<id>/Characters/<char>/SDPrompt.txt
//	Global/Characters/<char>.json
//	Global/Payloads.json
//	Prompt/system.txt
//
// A per-user mutex serializes read-modify-write cycles on one user's
// files. Global files are read-only at runtime.
type FileStore struct {
	root   string
	logger logger.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewFileStore(root string, log logger.Logger) *FileStore {
	return &FileStore{
		root:   root,
		logger: log,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (s *FileStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *FileStore) userDir(userID int64) string {
	return filepath.Join(s.root, "Data", fmt.Sprintf("%d", userID))
}

func (s *FileStore) charDir(userID int64, char string) string {
	return filepath.Join(s.userDir(userID), "Characters", char)
}

func (s *FileStore) globalCardPath(char string) string {
	return filepath.Join(s.root, "Global", "Characters", char+".json")
}

// History

func (s *FileStore) LoadHistory(userID int64, char string) ([]Turn, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadHistory(userID, char)
}

func (s *FileStore) loadHistory(userID int64, char string) ([]Turn, error) {
	path := filepath.Join(s.charDir(userID, char), "History.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(raw) == 0 {
		return []Turn{}, nil
	}
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}

func (s *FileStore) AppendHistory(userID int64, char string, turns ...Turn) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	old, err := s.loadHistory(userID, char)
	if err != nil {
		return err
	}
	old = append(old, turns...)

	path := filepath.Join(s.charDir(userID, char), "History.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create character dir: %w", err)
	}
	return writeJSON(path, old)
}

// ClearHistory truncates the history file. Clearing an absent or
// already empty history is a no-op.
func (s *FileStore) ClearHistory(userID int64, char string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.charDir(userID, char), "History.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Profiles

func (s *FileStore) LoadUserProfile(userID int64) (*profile.UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadUserProfile(userID)
}

func (s *FileStore) loadUserProfile(userID int64) (*profile.UserProfile, error) {
	path := filepath.Join(s.userDir(userID), "User.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(raw) == 0) {
		p := profile.NewUserProfile()
		if err := s.saveUserProfile(userID, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user profile: %w", err)
	}
	var p profile.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	return &p, nil
}

func (s *FileStore) SaveUserProfile(userID int64, p *profile.UserProfile) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.saveUserProfile(userID, p)
}

func (s *FileStore) saveUserProfile(userID int64, p *profile.UserProfile) error {
	path := filepath.Join(s.userDir(userID), "User.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	return writeJSON(path, p)
}

func (s *FileStore) LoadRuntimeProfile(userID int64) (*profile.RuntimeProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadRuntimeProfile(userID)
}

func (s *FileStore) loadRuntimeProfile(userID int64) (*profile.RuntimeProfile, error) {
	path := filepath.Join(s.userDir(userID), "Runtime.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(raw) == 0) {
		r := profile.NewRuntimeProfile(userID)
		if err := s.saveRuntimeProfile(userID, r); err != nil {
			return nil, err
		}
		// A first contact also seeds the durable profile.
		if _, err := s.loadUserProfile(userID); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read runtime profile: %w", err)
	}
	var r profile.RuntimeProfile
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode runtime profile: %w", err)
	}
	return &r, nil
}

func (s *FileStore) SaveRuntimeProfile(userID int64, r *profile.RuntimeProfile) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.saveRuntimeProfile(userID, r)
}

func (s *FileStore) saveRuntimeProfile(userID int64, r *profile.RuntimeProfile) error {
	path := filepath.Join(s.userDir(userID), "Runtime.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	return writeJSON(path, r)
}

// ResetRuntimeProfile replaces the session state with defaults. The
// durable user profile is never reset.
func (s *FileStore) ResetRuntimeProfile(userID int64) (*profile.RuntimeProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r := profile.NewRuntimeProfile(userID)
	if err := s.saveRuntimeProfile(userID, r); err != nil {
		return nil, err
	}
	if _, err := s.loadUserProfile(userID); err != nil {
		return nil, err
	}
	return r, nil
}

// Characters

func (s *FileStore) LoadCharacterCard(userID int64, char string) (*character.Card, error) {
	var path string
	if userID == 0 {
		path = s.globalCardPath(char)
	} else {
		path = filepath.Join(s.charDir(userID, char), "CharacterCard.json")
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, char)
	}
	if err != nil {
		return nil, fmt.Errorf("read character card: %w", err)
	}
	return character.ParseCard(raw)
}

// InstantiateCharacter copies the global card into the user's scope
// and creates an empty history. Existing files are kept.
func (s *FileStore) InstantiateCharacter(userID int64, char string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	card, err := s.LoadCharacterCard(0, char)
	if err != nil {
		return err
	}

	dir := s.charDir(userID, char)
	if err := os.MkdirAll(filepath.Join(dir, "Output"), 0o755); err != nil {
		return fmt.Errorf("create character dir: %w", err)
	}

	cardPath := filepath.Join(dir, "CharacterCard.json")
	if _, err := os.Stat(cardPath); os.IsNotExist(err) {
		if err := writeJSON(cardPath, card); err != nil {
			return err
		}
	}

	historyPath := filepath.Join(dir, "History.json")
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		if err := os.WriteFile(historyPath, []byte{}, 0o644); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
	}

	sdSource := strings.TrimSuffix(s.globalCardPath(char), ".json") + ".sd.txt"
	if raw, err := os.ReadFile(sdSource); err == nil {
		sdPath := filepath.Join(dir, "SDPrompt.txt")
		if _, err := os.Stat(sdPath); os.IsNotExist(err) {
			if err := os.WriteFile(sdPath, raw, 0o644); err != nil {
				return fmt.Errorf("copy sd prompt: %w", err)
			}
		}
	}

	s.logger.WithFields(logger.Fields{
		"user_id":   userID,
		"character": char,
	}).Info("Character instantiated")
	return nil
}

func (s *FileStore) AvailableCharacters() ([]string, error) {
	dir := filepath.Join(s.root, "Global", "Characters")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

// Prompts

func (s *FileStore) SystemPrompt() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, "Prompt", "system.txt"))
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(raw), nil
}

// SDPrompt reads the character's image prompt file: first line is the
// positive prompt (holding the $ insertion marker), second line the
// negative prompt.
func (s *FileStore) SDPrompt(userID int64, char string) (string, string, error) {
	raw, err := os.ReadFile(filepath.Join(s.charDir(userID, char), "SDPrompt.txt"))
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrNoSDPrompt, char)
	}
	lines := strings.SplitN(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n", 3)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNoSDPrompt, char)
	}
	positive := strings.TrimSpace(lines[0])
	negative := ""
	if len(lines) > 1 {
		negative = strings.TrimSpace(lines[1])
	}
	return positive, negative, nil
}

func (s *FileStore) SDPayload(kind string) (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, "Global", "Payloads.json"))
	if err != nil {
		return nil, fmt.Errorf("read sd payloads: %w", err)
	}
	var payloads map[string]map[string]any
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("decode sd payloads: %w", err)
	}
	payload, ok := payloads[kind]
	if !ok {
		return nil, fmt.Errorf("unknown sd payload kind %q", kind)
	}
	return payload, nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
