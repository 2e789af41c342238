package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		kind *Kind
	}{
		{"plain", New(NotFound, "catalogue.GetRange", "range not found"), NotFound},
		{"wrapped", fmt.Errorf("handler: %w", New(InvalidState, "draft.Promote", "bad")), InvalidState},
		{"with cause", Wrap(Upstream, "channel.PushRange", cause), Upstream},
		{"conflict", Conflict("draft.OpenEdit", "u-2"), ConflictingEdit},
		{"unclassified", cause, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(Upstream, "channel.PushRange", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, Upstream)
	assert.Equal(t, "channel.PushRange: timeout", err.Error())
	assert.Equal(t, "timeout", Message(err))
}

func TestInvalidFields(t *testing.T) {
	err := fmt.Errorf("save: %w", Invalid("editor.SavePage", map[string]string{"name": "required"}))

	assert.Equal(t, map[string]string{"name": "required"}, FieldErrors(err))
	assert.Nil(t, FieldErrors(errors.New("x")))
}

func TestConflictCarriesUser(t *testing.T) {
	var e *Error
	err := fmt.Errorf("open: %w", Conflict("draft.OpenEdit", "alice"))
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "alice", e.UserID)
	assert.Contains(t, Message(err), "alice")
}

func TestErrorText(t *testing.T) {
	cause := errors.New("timeout")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"kind only", &Error{Kind: NotFound}, "not found"},
		{"op and kind", &Error{Kind: NotFound, Op: "catalogue.GetRange"}, "catalogue.GetRange: not found"},
		{"message", New(InvalidState, "draft.Promote", "range has no products"), "draft.Promote: range has no products"},
		{"cause", Wrap(Upstream, "channel.PushRange", cause), "channel.PushRange: timeout"},
		{"message and cause", &Error{Kind: Upstream, Op: "channel.PushRange", Msg: "push failed", Err: cause}, "channel.PushRange: push failed: timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
