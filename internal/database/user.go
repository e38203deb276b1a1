package database

import (
	"crypto/rand"
)

// GetUser looks up a previously seen Telegram account. A missing row
// surfaces as sql.ErrNoRows so the caller can register the account.
func (s *sqliteDB) GetUser(userID int64) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(
		"SELECT id, public_id, first_name, username, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.PublicID, &user.FirstName, &user.Username, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SaveUser upserts the account record. The public id is minted on
// first contact and survives later name or username changes.
func (s *sqliteDB) SaveUser(user User) error {
	if user.PublicID == "" {
		publicID, err := generatePublicID()
		if err != nil {
			return err
		}
		user.PublicID = publicID
	}

	_, err := s.db.Exec(`
		INSERT INTO users (id, public_id, first_name, username)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			username = excluded.username,
			updated_at = CURRENT_TIMESTAMP
	`, user.ID, user.PublicID, user.FirstName, user.Username)
	return err
}

// generatePublicID mints the short base36 handle that shows up in
// logs instead of the raw Telegram id.
func generatePublicID() (string, error) {
	raw := make([]byte, 3)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	n := uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2])
	id := []byte("0000")
	for i := len(id) - 1; i >= 0 && n > 0; i-- {
		id[i] = digits[n%36]
		n /= 36
	}
	return string(id), nil
}
