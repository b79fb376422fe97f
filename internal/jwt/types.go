package jwt

import "github.com/golang-jwt/jwt"

// Claims is the payload carried by access tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.StandardClaims
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

type RegisterUser struct {
	Username string
	Password string
}
