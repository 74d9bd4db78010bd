package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/soullog/internal/model"
)

const highlightMaxRunes = 200

type coachCopy struct {
	opening string
	lead    string // 本文引用の前置き
	heading string
	prompts [2]string
	closing string
}

var coachCopies = map[model.Category]coachCopy{
	model.CategoryHappy: {
		opening: "It's beautiful to witness your joy. Let it ripple into the rest of the day.",
		lead:    "You captured",
		heading: "Consider exploring:",
		prompts: [2]string{
			"Bottle the moment by writing a gratitude note to your future self.",
			"What tiny ritual helped you feel this light today?",
		},
		closing: "Keep listening to yourself. Awareness is healing.",
	},
	model.CategoryNeutral: {
		opening: "You're in a reflective place. This is a gentle invitation to check in with your energy.",
		lead:    "You captured",
		heading: "Consider exploring:",
		prompts: [2]string{
			"What would feeling 10% better look like this afternoon?",
			"Name one small win you can create before the day ends.",
		},
		closing: "Keep listening to yourself. Awareness is healing.",
	},
	model.CategorySad: {
		opening: "Thank you for sharing honestly. Softer days deserve extra compassion and care.",
		lead:    "You captured",
		heading: "Consider exploring:",
		prompts: [2]string{
			"Which friend or practice could offer comfort right now?",
			"Gift yourself five minutes of deep breathing or stretching.",
		},
		closing: "Keep listening to yourself. Awareness is healing.",
	},
	model.CategoryExercise: {
		opening: "Consistency compounds. Your body will thank you for moving today.",
		lead:    "You captured",
		heading: "Try this next:",
		prompts: [2]string{
			"Schedule a gentle stretch or mobility session for tomorrow.",
			"Fuel your body with protein within an hour of finishing your workout.",
		},
		closing: "Remember to celebrate the effort, not just the outcome.",
	},
	model.CategoryNutrition: {
		opening: "Balanced nutrition is an act of self-respect. Notice how your energy responds.",
		lead:    "You captured",
		heading: "Try this next:",
		prompts: [2]string{
			"Aim to color your next plate with at least three different plants.",
			"Hydrate before your meals to support digestion and energy.",
		},
		closing: "Remember to celebrate the effort, not just the outcome.",
	},
	model.CategoryHydration: {
		opening: "Each glass is a reset button for your focus and recovery.",
		lead:    "You captured",
		heading: "Try this next:",
		prompts: [2]string{
			"Pair every cup of coffee with a full glass of water.",
			"Keep a refill reminder on your phone for mid-afternoon slumps.",
		},
		closing: "Remember to celebrate the effort, not just the outcome.",
	},
	model.CategoryMeditation: {
		opening: "Meditation is how you plant seeds of stillness. Thank you for tending your heart with care.",
		lead:    "You wrote",
		heading: "Next soul ritual:",
		prompts: [2]string{
			"Light a candle tonight and breathe with the flame for three slow cycles.",
			"Set a two-minute timer and scan your body from toes to crown with gratitude.",
		},
		closing: "Trust your rhythm. Every note of presence counts.",
	},
	model.CategoryGratitude: {
		opening: "Gratitude reorients the soul toward abundance. Your reflections brighten the day.",
		lead:    "You wrote",
		heading: "Next soul ritual:",
		prompts: [2]string{
			"Send one sentence of appreciation to a person who crossed your mind.",
			"Note a few sensory delights you noticed today and honor them aloud.",
		},
		closing: "Trust your rhythm. Every note of presence counts.",
	},
	model.CategoryReflection: {
		opening: "Reflection is a mirror for the spirit. You are bravely noticing what wants to be healed.",
		lead:    "You wrote",
		heading: "Next soul ritual:",
		prompts: [2]string{
			"Write a gentle question for tomorrow's self and place it on your nightstand.",
			"Release anything heavy by journaling what you're ready to forgive.",
		},
		closing: "Trust your rhythm. Every note of presence counts.",
	},
}

// Feedback はカテゴリと本文からコーチングメッセージを生成する。
// 同じ入力には常に同じ文面を返す。未知のカテゴリでは空文字を返す。
func Feedback(category model.Category, content string) string {
	cc, ok := coachCopies[category]
	if !ok {
		return ""
	}

	highlight := Highlight(content)
	if highlight == "" {
		highlight = "..."
	}

	var sb strings.Builder
	sb.WriteString(cc.opening)
	fmt.Fprintf(&sb, "\n\n%s: “%s”\n\n", cc.lead, highlight)
	sb.WriteString(cc.heading)
	for _, p := range cc.prompts {
		sb.WriteString("\n• ")
		sb.WriteString(p)
	}
	sb.WriteString("\n\n")
	sb.WriteString(cc.closing)
	return sb.String()
}

// Highlight は本文をトリムし、200文字を超える場合は切り詰めて"…"を付ける。
func Highlight(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= highlightMaxRunes {
		return content
	}
	return string(runes[:highlightMaxRunes]) + "…"
}

var affirmations = []string{
	"I give myself permission to slow down and listen deeply.",
	"My inner wisdom is a compass I can trust.",
	"Every breath is a doorway back to peace.",
	"Gratitude turns ordinary moments into miracles.",
	"I am grounded, guided, and growing in grace.",
}

// Affirmation は日付ごとに決まるアファメーションを返す。
func Affirmation(day time.Time) string {
	return affirmations[day.YearDay()%len(affirmations)]
}
