package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds credentials for creating a teacher account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest holds credentials for authenticating a teacher.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and teacher info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Teacher     TeacherInfo `json:"teacher"`
}

// JWTClaims carries the authenticated teacher identity through a request.
type JWTClaims struct {
	TeacherID string `json:"teacher_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}
