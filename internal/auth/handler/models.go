package handler

import (
	"strings"

	dErrors "lokal/pkg/domain-errors"
)

// LoginRequest is the body of POST /api/account/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	UserID string `json:"user_id"`
}
