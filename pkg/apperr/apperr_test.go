package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByCodeAcrossWrapping(t *testing.T) {
	sentinel := New(http.StatusForbidden, "NO_TESTS_REMAINING", "no credits")
	wrapped := fmt.Errorf("submit: %w", sentinel)

	require.True(t, errors.Is(wrapped, New(0, "NO_TESTS_REMAINING", "")))
	require.False(t, errors.Is(wrapped, New(0, "OTHER_CODE", "")))
}

func TestFrom_DefaultsToInternalError(t *testing.T) {
	e := From(errors.New("raw db error"))
	require.Equal(t, http.StatusInternalServerError, e.Status)
	require.Equal(t, "INTERNAL_ERROR", e.Code)
	require.Equal(t, "internal server error", e.Message, "raw cause never leaks to clients")
}

func TestFrom_PreservesAppError(t *testing.T) {
	orig := Wrap(http.StatusConflict, "ALREADY_PROCESSED", "already ran", errors.New("dup key"))
	e := From(fmt.Errorf("cron: %w", orig))
	require.Equal(t, http.StatusConflict, e.Status)
	require.Equal(t, "ALREADY_PROCESSED", e.Code)
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	base := New(http.StatusInternalServerError, "AI_TIMEOUT", "timed out")
	withID := base.WithDetails(map[string]string{"testId": "t1"})

	require.Nil(t, base.Details)
	require.NotNil(t, withID.Details)
	require.True(t, errors.Is(withID, base))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("socket closed")
	e := Wrap(http.StatusInternalServerError, "AI_SERVICE_ERROR", "provider error", cause)
	require.True(t, errors.Is(e, cause))
}
