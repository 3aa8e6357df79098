package domain

import (
	"errors"
	"time"
)

// Roles recognised by the API surface. The realtime engine itself never
// inspects roles; it trusts the identity the transport layer hands it.
const (
	RoleAdmin  = "admin"
	RoleDriver = "driver"
	RoleUser   = "user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")

// User is an authenticated account: a dashboard user, an operator, or a
// driver's login identity.
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
