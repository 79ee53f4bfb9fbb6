package domain

import "time"

// Account represents a registered identity. Email is stored in normalized
// form (trimmed, lower-cased) and is unique across all accounts.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
