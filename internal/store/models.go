package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	Image        string
	Banned       bool
	BanReason    string
	BanExpires   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Board is a single markdown document with owner, visibility, and
// editor-list metadata. Data holds the full markdown source.
type Board struct {
	ID        string
	AuthorID  string
	Title     string
	IsPublic  bool
	Editors   []string
	Data      string
	CreatedAt time.Time
}
