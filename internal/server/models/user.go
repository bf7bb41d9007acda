// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account that owns contacts. Email is the login identifier and
// the subject of issued bearer tokens.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	UserName     *string   `json:"username"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"is_verified"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}
