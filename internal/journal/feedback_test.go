package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/soullog/internal/model"
)

func TestFeedback_EveryCategoryHasCopy(t *testing.T) {
	for _, c := range model.AllCategories() {
		got := Feedback(c, "a note")
		assert.NotEmpty(t, got, "category %s", c)
		assert.Contains(t, got, "“a note”")
		assert.Equal(t, 2, strings.Count(got, "\n• "), "category %s should have two prompts", c)
	}
}

func TestFeedback_IsDeterministic(t *testing.T) {
	assert.Equal(t, Feedback(model.CategorySad, "rainy"), Feedback(model.CategorySad, "rainy"))
}

func TestFeedback_EmptyContentUsesEllipsis(t *testing.T) {
	assert.Contains(t, Feedback(model.CategoryExercise, "   "), "“...”")
}

func TestFeedback_UnknownCategory(t *testing.T) {
	assert.Empty(t, Feedback(model.Category("unknown"), "text"))
	assert.Empty(t, Feedback(model.CategoryNoData, "text"))
}

func TestHighlight_TruncatesByRunes(t *testing.T) {
	short := strings.Repeat("あ", 200)
	assert.Equal(t, short, Highlight(short))

	long := strings.Repeat("あ", 201)
	got := Highlight(long)
	assert.Equal(t, strings.Repeat("あ", 200)+"…", got)
}

func TestAffirmation_StableForDay(t *testing.T) {
	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, Affirmation(day), Affirmation(day.Add(10*time.Hour)))
	assert.NotEmpty(t, Affirmation(day))
}
