package types

import "github.com/golang-jwt/jwt/v5"

// Cookie names understood by the ByteBite frontend.
const (
	CookieCurrentUser = "BBAIcurrentuser"
	CookieEmail       = "BBAIemail"
	CookieSession     = "BBAIsession"
)

// CheckEmailRequest is the body of POST /check-email.
type CheckEmailRequest struct {
	Email string `json:"email" example:"jamie@example.com"`
}

type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Email    string `json:"email" example:"jamie@example.com"`
	Password string `json:"password" example:"password123"`
}

// LoginResponse mirrors what the login page script expects.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty" example:"/dashboard"`
	Name     string `json:"name,omitempty" example:"Jamie"`
}

// SignupRequest represents the sign-up form payload.
type SignupRequest struct {
	Name            string `json:"name" example:"Jamie"`
	Email           string `json:"email" example:"jamie@example.com"`
	Password        string `json:"password" example:"Str0ngPass1"`
	ConfirmPassword string `json:"confirmPassword" example:"Str0ngPass1"`
}

// Claims represents the custom claims included in the session token.
type Claims struct {
	UserID string `json:"uid"`
	Name   string `json:"usr,omitempty"`
	Email  string `json:"eml"`
	jwt.RegisteredClaims
}
