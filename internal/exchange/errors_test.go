package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

func TestCodeAndHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{ErrValidation, "validation", fiber.StatusBadRequest},
		{ErrInvalidRequest, "invalid_request", fiber.StatusBadRequest},
		{ErrDuplicatePending, "duplicate_pending", fiber.StatusConflict},
		{ErrListingClosed, "listing_closed", fiber.StatusConflict},
		{ErrUnauthorized, "unauthorized", fiber.StatusForbidden},
		{ErrAlreadyDecided, "already_decided", fiber.StatusConflict},
		{ErrConversationClosed, "conversation_closed", fiber.StatusForbidden},
		{ErrNotFound, "not_found", fiber.StatusNotFound},
		{ErrConstraintViolation, "constraint_violation", fiber.StatusConflict},
		{errors.New("что-то сломалось"), "internal", fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, Code(tc.err))
		assert.Equal(t, tc.status, HTTPStatus(tc.err))
	}
}

func TestCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: название обязательно", ErrValidation)
	assert.Equal(t, "validation", Code(wrapped))
	assert.Equal(t, fiber.StatusBadRequest, HTTPStatus(wrapped))
}

// Валидация входных данных выполняется до обращения к базе,
// поэтому эти тесты обходятся без подключения.
func TestCreateListingValidation(t *testing.T) {
	m := &Manager{}
	ctx := context.Background()
	owner := uuid.New()

	_, err := m.CreateListing(ctx, owner, "", "описание", []string{"Go"}, []string{"Rust"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateListing(ctx, owner, "заголовок", "   ", []string{"Go"}, []string{"Rust"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateListing(ctx, owner, "заголовок", "описание", nil, []string{"Rust"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateListing(ctx, owner, "заголовок", "описание", []string{" ", ""}, []string{"Rust"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateListing(ctx, owner, "заголовок", "описание", []string{"Go"}, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDecideRequestValidation(t *testing.T) {
	m := &Manager{}

	_, _, err := m.DecideRequest(context.Background(), uuid.New(), uuid.New(), "maybe")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = m.DecideRequest(context.Background(), uuid.New(), uuid.New(), "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCleanSkills(t *testing.T) {
	assert.Equal(t, []string{"Go", "Rust"}, cleanSkills([]string{" Go ", "", "Rust", "  "}))
	assert.Empty(t, cleanSkills([]string{"", "   "}))
	assert.Empty(t, cleanSkills(nil))
}

func TestRequestStatusPredicates(t *testing.T) {
	req := models.ExchangeRequest{Status: models.RequestStatusPending}
	assert.True(t, req.IsPending())

	req.Status = models.RequestStatusAccepted
	assert.False(t, req.IsPending())
}
