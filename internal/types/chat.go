package types

type ChatRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=4000" example:"What should I eat after a run?"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// RecommendationRequest asks for a meal idea shaped by the stored preferences.
type RecommendationRequest struct {
	Meal  string `json:"meal,omitempty" validate:"omitempty,oneof=breakfast lunch dinner snack"`
	Extra string `json:"extra,omitempty" validate:"max=500"`
}
