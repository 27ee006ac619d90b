package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindInvalidInput: http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading tour: %w", NotFound("No tour found with that ID"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestOperational(t *testing.T) {
	assert.True(t, Conflict("dup").Operational())
	assert.False(t, Internal("Error sending email", errors.New("smtp down")).Operational())
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Internal("Error sending email", errors.New("smtp down"))
	assert.Equal(t, "Error sending email: smtp down", err.Error())
	assert.ErrorIs(t, err, err.Err)
}
