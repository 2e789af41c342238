package validation

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"go.uber.org/zap"
)

// Check tests one object of type T. Test returns ok for a passing object and
// otherwise a message naming what is wrong with it.
type Check[T any] struct {
	Name  string
	Level Level
	Test  func(obj T) (msg string, ok bool)
}

// Failure is one failed check on one object.
type Failure struct {
	Validator string
	Check     string
	Level     Level
	Message   string
}

// Validator runs its checks over the objects it selected.
type Validator interface {
	Name() string
	Validate(ctx context.Context, log logger.ZapLogger) []Failure
}

// ObjectValidator applies a set of checks to every object of one selection.
type ObjectValidator[T any] struct {
	name    string
	objects []T
	checks  []Check[T]
	names   map[string]bool
}

// NewObjectValidator panics when two checks share a name, since the name is
// part of every logged failure's identity.
func NewObjectValidator[T any](name string, objects []T, checks ...Check[T]) *ObjectValidator[T] {
	v := &ObjectValidator[T]{name: name, objects: objects, names: map[string]bool{}}
	for _, c := range checks {
		v.Add(c)
	}
	return v
}

func (v *ObjectValidator[T]) Add(c Check[T]) {
	if c.Name == "" || c.Test == nil {
		panic(fmt.Sprintf("validation: check in %s needs a name and a test", v.name))
	}
	if !c.Level.Valid() {
		panic(fmt.Sprintf("validation: check %s.%s has unknown level %d", v.name, c.Name, c.Level))
	}
	if v.names[c.Name] {
		panic(fmt.Sprintf("validation: check %s.%s registered twice", v.name, c.Name))
	}
	v.names[c.Name] = true
	v.checks = append(v.checks, c)
}

func (v *ObjectValidator[T]) Name() string {
	return v.name
}

// CheckNames lists the checks in registration order.
func (v *ObjectValidator[T]) CheckNames() []string {
	out := make([]string, len(v.checks))
	for i, c := range v.checks {
		out[i] = c.Name
	}
	return out
}

// Validate runs every check over every object. A check that panics is logged
// and abandoned; the remaining checks still run.
func (v *ObjectValidator[T]) Validate(ctx context.Context, log logger.ZapLogger) []Failure {
	var out []Failure
	for _, c := range v.checks {
		if ctx.Err() != nil {
			return out
		}
		out = append(out, v.run(c, log)...)
	}
	return out
}

func (v *ObjectValidator[T]) run(c Check[T], log logger.ZapLogger) (failures []Failure) {
	defer func() {
		if r := recover(); r != nil {
			CheckPanics.WithLabelValues(v.name, c.Name).Inc()
			log.Error("validation check panicked",
				zap.String("validator", v.name),
				zap.String("check", c.Name),
				zap.Any("panic", r),
			)
			failures = nil
		}
	}()
	for _, obj := range v.objects {
		if msg, ok := c.Test(obj); !ok {
			failures = append(failures, Failure{
				Validator: v.name,
				Check:     c.Name,
				Level:     c.Level,
				Message:   msg,
			})
		}
	}
	return failures
}
