package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arturoeanton/cirkle/internal/handler"
	"github.com/arturoeanton/cirkle/internal/port"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{port.ErrUnauthorized, http.StatusUnauthorized},
		{port.ErrTokenExpired, http.StatusUnauthorized},
		{fmt.Errorf("%w: bad sig", port.ErrTokenInvalid), http.StatusUnauthorized},
		{port.ErrNoDriveToken, http.StatusUnauthorized},
		{port.ErrNotMember, http.StatusForbidden},
		{port.ErrGroupNotFound, http.StatusNotFound},
		{fmt.Errorf("remove: %w", port.ErrResourceNotFound), http.StatusNotFound},
		{port.ErrUserNotFound, http.StatusNotFound},
		{port.ErrAlreadyMember, http.StatusConflict},
		{port.ErrTimerRunning, http.StatusConflict},
		{port.ErrInvalidDuration, http.StatusBadRequest},
		{fmt.Errorf("%w: name too long", port.ErrInvalidInput), http.StatusBadRequest},
		{port.ErrUnknownProvider, http.StatusBadRequest},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, handler.StatusFor(tt.err))
		})
	}
}
