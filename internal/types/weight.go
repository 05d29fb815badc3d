package types

import (
	"time"

	"github.com/google/uuid"
)

type WeightEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	WeightKg   float64   `json:"weight_kg"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateWeightParams struct {
	WeightKg   float64    `json:"weight_kg" validate:"min=20,max=500"`
	Note       string     `json:"note,omitempty" validate:"max=200"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// WeightFilter bounds a listing; zero times are open ends.
type WeightFilter struct {
	From time.Time
	To   time.Time
}

type WeightSummary struct {
	Count  int          `json:"count"`
	First  *WeightEntry `json:"first,omitempty"`
	Latest *WeightEntry `json:"latest,omitempty"`
	Change float64      `json:"change_kg"`
	Min    float64      `json:"min_kg"`
	Max    float64      `json:"max_kg"`
	BMI    *float64     `json:"bmi,omitempty"`
}
