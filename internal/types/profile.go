package types

import (
	"time"

	"github.com/google/uuid"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// Preferences holds the food and body details a user keeps on their profile.
type Preferences struct {
	UserID        uuid.UUID     `json:"user_id"`
	Age           *int          `json:"age,omitempty"`
	HeightCm      *float64      `json:"height_cm,omitempty"`
	Gender        string        `json:"gender,omitempty"`
	ActivityLevel ActivityLevel `json:"activity_level,omitempty"`
	Goal          Goal          `json:"goal,omitempty"`
	DietType      string        `json:"diet_type,omitempty"`
	Allergies     []string      `json:"allergies"`
	Cuisines      []string      `json:"cuisines"`
	Dislikes      []string      `json:"dislikes"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Profile is what GET /api/profile returns.
type Profile struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	ProfilePic  string      `json:"profile_pic" example:"static/img/PFPs/default.png"`
	Preferences Preferences `json:"preferences"`
}

// UpdateProfileParams defines the fields allowed for profile updates.
// Nil pointers are left untouched; nil slices too.
type UpdateProfileParams struct {
	Name          *string        `json:"name,omitempty" validate:"omitempty,notblank,max=80"`
	Age           *int           `json:"age,omitempty" validate:"omitempty,min=1,max=120"`
	HeightCm      *float64       `json:"height_cm,omitempty" validate:"omitempty,min=50,max=272"`
	Gender        *string        `json:"gender,omitempty" validate:"omitempty,max=30"`
	ActivityLevel *ActivityLevel `json:"activity_level,omitempty" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Goal          *Goal          `json:"goal,omitempty" validate:"omitempty,oneof=lose maintain gain"`
	DietType      *string        `json:"diet_type,omitempty" validate:"omitempty,max=40"`
	Allergies     []string       `json:"allergies,omitempty" validate:"omitempty,max=20,dive,max=60"`
	Cuisines      []string       `json:"cuisines,omitempty" validate:"omitempty,max=20,dive,max=60"`
	Dislikes      []string       `json:"dislikes,omitempty" validate:"omitempty,max=20,dive,max=60"`
}

type ProfilePictureResponse struct {
	ProfilePic string `json:"profile_pic" example:"static/img/PFPs/default.png"`
}
