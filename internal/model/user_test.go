package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Public_EmptyFieldsBecomeNull(t *testing.T) {
	u := &User{ID: "u-1", Email: "me@example.com"}

	data, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1","email":"me@example.com","name":null,"avatarUrl":null}`, string(data))
}

func TestExternalProfile_Validate(t *testing.T) {
	var nilProfile *ExternalProfile
	assert.Error(t, nilProfile.Validate())
	assert.Error(t, (&ExternalProfile{ID: "  "}).Validate())

	err := (&ExternalProfile{}).Validate()
	assert.True(t, errors.Is(err, ErrValidation), "検証エラーはErrValidationとして判定できること")

	assert.NoError(t, (&ExternalProfile{ID: "google-1"}).Validate())
}

func TestExternalProfile_PrimaryValues_SkipBlank(t *testing.T) {
	p := &ExternalProfile{
		ID:     "google-1",
		Emails: []string{"", "  ", "first@example.com", "second@example.com"},
		Photos: nil,
	}

	assert.Equal(t, "first@example.com", p.PrimaryEmail())
	assert.Equal(t, "", p.PrimaryPhoto())
}

func TestSession_Authenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Authenticated())
	assert.False(t, (&Session{Token: "t"}).Authenticated(), "ログイン前のセッション")
	assert.True(t, (&Session{Token: "t", UserID: "u-1"}).Authenticated())
}

func TestAPIError_Is(t *testing.T) {
	assert.True(t, errors.Is(NewDependencyUnavailableError(), ErrDependencyUnavailable))
	assert.False(t, errors.Is(NewInternalError(), ErrDependencyUnavailable))
	assert.True(t, errors.Is(NewValidationError("bad"), ErrValidation))
	assert.False(t, errors.Is(NewCSRFError(), ErrValidation))
	assert.Equal(t, "[RATE_LIMITED] Too many requests. Please try again later.", NewRateLimitedError().Error())
}
