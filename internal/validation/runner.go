package validation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
)

// Runner binds validators to one database model and collects their failures
// by level.
type Runner struct {
	App        string
	Model      string
	validators []Validator
	failures   map[Level][]Failure
}

func NewRunner(app, model string, validators ...Validator) *Runner {
	return &Runner{App: app, Model: model, validators: validators, failures: map[Level][]Failure{}}
}

// Run validates from scratch, dropping the failures of any earlier run.
// Identical failures reported twice are kept once.
func (r *Runner) Run(ctx context.Context, log logger.ZapLogger) {
	r.failures = map[Level][]Failure{}
	seen := map[Failure]bool{}
	for _, v := range r.validators {
		for _, f := range v.Validate(ctx, log) {
			if seen[f] {
				continue
			}
			seen[f] = true
			r.failures[f.Level] = append(r.failures[f.Level], f)
		}
	}
}

// Failures lists every failure, most severe level first.
func (r *Runner) Failures() []Failure {
	var out []Failure
	for _, l := range levels {
		out = append(out, r.failures[l]...)
	}
	return out
}

// ErrorMessages returns the messages of the checks that failed at level.
func (r *Runner) ErrorMessages(level Level) []string {
	out := make([]string, 0, len(r.failures[level]))
	for _, f := range r.failures[level] {
		out = append(out, f.Message)
	}
	return out
}

// FormatErrorMessages renders the failures at level one per line.
func (r *Runner) FormatErrorMessages(level Level) string {
	var b strings.Builder
	for _, f := range r.failures[level] {
		fmt.Fprintf(&b, "%s.%s: %s\n", f.Validator, f.Check, f.Message)
	}
	return b.String()
}

// LoadFunc selects the objects a runner validates, reading the model rows
// and any external data its validators need.
type LoadFunc func(ctx context.Context) ([]Validator, error)

// Definition is a registered runner.
type Definition struct {
	App   string
	Model string
	Load  LoadFunc
}

// Registry holds the runners of a validation pass.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register panics when (app, model) already has a runner.
func (r *Registry) Register(app, model string, load LoadFunc) {
	if app == "" || model == "" || load == nil {
		panic("validation: runner needs an app, a model and a loader")
	}
	key := app + "." + model
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[key]; ok {
		panic("validation: runner " + key + " registered twice")
	}
	r.defs[key] = Definition{App: app, Model: model, Load: load}
}

// Definitions returns the runners ordered by app, then model.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Definition) int {
		return cmp.Or(cmp.Compare(a.App, b.App), cmp.Compare(a.Model, b.Model))
	})
	return out
}

func (r *Registry) Lookup(app, model string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[app+"."+model]
	return d, ok
}

// Apps lists the registered apps in order.
func (r *Registry) Apps() []string {
	var out []string
	for _, d := range r.Definitions() {
		if len(out) == 0 || out[len(out)-1] != d.App {
			out = append(out, d.App)
		}
	}
	return out
}
