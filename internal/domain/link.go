package domain

import "time"

// Link is a shortened URL owned by an account.
type Link struct {
	ID        string
	OwnerID   string
	Code      string
	Target    string
	Clicks    int64
	CreatedAt time.Time
}
