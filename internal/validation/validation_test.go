package validation

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: Formatting},
		{in: "critical", want: Critical},
		{in: " Warning ", want: Warning},
		{in: "7", want: Error},
		{in: "5", wantErr: true},
		{in: "fatal", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, apperr.InvalidInput)
				assert.Contains(t, apperr.FieldErrors(err), "level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelsOrderedBySeverity(t *testing.T) {
	got := Levels()
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1], got[i])
	}
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "level(3)", Level(3).String())
}

type item struct {
	name string
	size int
}

func sizeCheck(level Level) Check[item] {
	return Check[item]{Name: "positive", Level: level, Test: func(it item) (string, bool) {
		if it.size > 0 {
			return "", true
		}
		return it.name + " is empty", false
	}}
}

func TestObjectValidatorRejectsBadChecks(t *testing.T) {
	assert.Panics(t, func() {
		NewObjectValidator("items", nil, sizeCheck(Error), sizeCheck(Warning))
	})
	assert.Panics(t, func() {
		NewObjectValidator("items", nil, Check[item]{Name: "no_test", Level: Error})
	})
	assert.Panics(t, func() {
		NewObjectValidator("items", nil, sizeCheck(Level(5)))
	})
}

func TestObjectValidatorAbandonsPanickingCheck(t *testing.T) {
	items := []item{{name: "a", size: 0}, {name: "b", size: 1}}
	v := NewObjectValidator("items", items,
		Check[item]{Name: "explodes", Level: Critical, Test: func(it item) (string, bool) {
			if it.name == "b" {
				panic("boom")
			}
			return "first fails", false
		}},
		sizeCheck(Error),
	)

	failures := v.Validate(context.Background(), logger.NewNop())

	assert.Equal(t, []Failure{{Validator: "items", Check: "positive", Level: Error, Message: "a is empty"}}, failures)
	assert.Equal(t, []string{"explodes", "positive"}, v.CheckNames())
}

func TestRunnerGroupsByLevel(t *testing.T) {
	items := []item{{name: "a"}, {name: "b", size: 2}, {name: "c"}}
	named := Check[item]{Name: "named", Level: Formatting, Test: func(it item) (string, bool) {
		return "check names", it.name == "b"
	}}
	r := NewRunner("shop", "item",
		NewObjectValidator("items", items, sizeCheck(Error), named),
		NewObjectValidator("items", items, sizeCheck(Error)),
	)

	r.Run(context.Background(), logger.NewNop())

	assert.Equal(t, []string{"a is empty", "c is empty"}, r.ErrorMessages(Error))
	assert.Equal(t, []string{"check names"}, r.ErrorMessages(Formatting))
	assert.Empty(t, r.ErrorMessages(Critical))
	assert.Equal(t, "items.positive: a is empty\nitems.positive: c is empty\n", r.FormatErrorMessages(Error))

	failures := r.Failures()
	require.Len(t, failures, 3)
	assert.Equal(t, Formatting, failures[2].Level)

	r.validators = nil
	r.Run(context.Background(), logger.NewNop())
	assert.Empty(t, r.Failures())
}

func TestRegistry(t *testing.T) {
	load := func(context.Context) ([]Validator, error) { return nil, nil }
	reg := NewRegistry()
	reg.Register("warehouse", "bay", load)
	reg.Register("catalogue", "product", load)
	reg.Register("catalogue", "barcode", load)

	var keys []string
	for _, d := range reg.Definitions() {
		keys = append(keys, d.App+"."+d.Model)
	}
	assert.Equal(t, []string{"catalogue.barcode", "catalogue.product", "warehouse.bay"}, keys)
	assert.Equal(t, []string{"catalogue", "warehouse"}, reg.Apps())

	_, ok := reg.Lookup("warehouse", "bay")
	assert.True(t, ok)
	_, ok = reg.Lookup("warehouse", "stock")
	assert.False(t, ok)

	assert.Panics(t, func() { reg.Register("warehouse", "bay", load) })
	assert.Panics(t, func() { reg.Register("", "bay", load) })
}
