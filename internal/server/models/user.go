package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsAdmin      bool
	LastLogin    *time.Time
	LastSweepAt  *time.Time
	CreatedAt    time.Time
}
