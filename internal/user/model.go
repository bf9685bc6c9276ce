// Package user owns accounts: registration, login, profiles and the identity
// lookups the chat engine resolves user ids through.
package user

import (
	"time"

	"gochat/internal/common"
)

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Avatar       string    `bson:"avatar" json:"avatar"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

func (u *User) Projection() common.UserProjection {
	return common.UserProjection{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
