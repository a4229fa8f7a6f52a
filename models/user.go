package models

import "time"

// User represents a blog author. Name and Image are nullable; the default
// (anonymous) user is created with a name and no image.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex" json:"email"`
	Name         *string   `gorm:"size:128" json:"name"`
	Image        *string   `gorm:"size:512" json:"image"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Posts        []Post    `json:"-"`
	Comments     []Comment `json:"-"`
}

// DisplayName returns the user's name or an empty string when it is unset.
func (u *User) DisplayName() string {
	if u.Name == nil {
		return ""
	}
	return *u.Name
}
