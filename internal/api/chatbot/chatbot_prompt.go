package chatbot

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/bytebite/internal/types"
)

const systemInstruction = `You are ByteBite, a friendly food and nutrition assistant.
Answer briefly and practically. You are not a doctor; suggest seeing one for medical questions.`

var goalText = map[types.Goal]string{
	types.GoalLose:     "lose weight",
	types.GoalMaintain: "maintain their weight",
	types.GoalGain:     "gain weight",
}

// RecommendationPrompt turns stored preferences into a meal request. Empty
// preferences still produce a usable prompt.
func RecommendationPrompt(p *types.Preferences, req types.RecommendationRequest) string {
	var sb strings.Builder
	meal := req.Meal
	if meal == "" {
		meal = "meal"
	}
	fmt.Fprintf(&sb, "Suggest one %s idea with a short ingredient list.\n", meal)

	if p != nil {
		if p.DietType != "" {
			fmt.Fprintf(&sb, "Diet: %s.\n", p.DietType)
		}
		if len(p.Allergies) > 0 {
			fmt.Fprintf(&sb, "Must not contain: %s.\n", strings.Join(p.Allergies, ", "))
		}
		if len(p.Dislikes) > 0 {
			fmt.Fprintf(&sb, "Avoid if possible: %s.\n", strings.Join(p.Dislikes, ", "))
		}
		if len(p.Cuisines) > 0 {
			fmt.Fprintf(&sb, "Preferred cuisines: %s.\n", strings.Join(p.Cuisines, ", "))
		}
		if g, ok := goalText[p.Goal]; ok {
			fmt.Fprintf(&sb, "The person wants to %s.\n", g)
		}
		if p.ActivityLevel != "" {
			fmt.Fprintf(&sb, "Activity level: %s.\n", strings.ReplaceAll(string(p.ActivityLevel), "_", " "))
		}
	}
	if extra := strings.TrimSpace(req.Extra); extra != "" {
		fmt.Fprintf(&sb, "Also: %s\n", extra)
	}
	return strings.TrimSpace(sb.String())
}

// cacheKey folds case and whitespace so trivially different prompts share an answer.
func cacheKey(provider, prompt string) string {
	return provider + "|" + strings.ToLower(strings.Join(strings.Fields(prompt), " "))
}
