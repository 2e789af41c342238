// Package validation runs named checks over catalogue data on a schedule and
// logs every failure for operators to triage.
//
// A Check tests one object. An ObjectValidator groups the checks that share a
// set of target objects. A Runner binds validators to one database model, and
// the Registry lists every runner a pass executes.
package validation

import (
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
)

// Level is the severity of a failed check. Levels compare by value.
type Level int

const (
	Formatting Level = 2
	Warning    Level = 4
	Error      Level = 7
	Critical   Level = 10
)

var levels = []Level{Critical, Error, Warning, Formatting}

var levelNames = map[Level]string{
	Critical:   "critical",
	Error:      "error",
	Warning:    "warning",
	Formatting: "formatting",
}

// Levels returns every level, most severe first.
func Levels() []Level {
	return append([]Level(nil), levels...)
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel accepts a level name or its number. The empty string is the
// lowest level, which filters nothing.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Formatting, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Level(n).Valid() {
		return Level(n), nil
	}
	return 0, apperr.Invalid("validation.ParseLevel", map[string]string{"level": "Unknown level " + strconv.Quote(s) + "."})
}
