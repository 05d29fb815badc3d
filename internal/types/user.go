package types

import (
	"time"

	"github.com/google/uuid"
)

// User is one entry of the credentials collection. The JSON field names match
// the credentials.json layout used by the site, so existing files load as-is.
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"password"` // bcrypt hash
	ProfilePic string    `json:"profile_pic"`
	Provider   string    `json:"provider,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionUser is the identity carried by a session token.
type SessionUser struct {
	ID    string `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Name  string `json:"name" example:"Jamie"`
	Email string `json:"email" example:"jamie@example.com"`
}
