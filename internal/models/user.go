package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// User is an administrator credential. Column names match the usuarios table
// the storefront has always used, so existing rows keep working.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"usuario"`
	PasswordHash string `db:"password"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the authenticated subject carried by a verified token.
type Identity struct {
	ID       int64
	Username string
}
