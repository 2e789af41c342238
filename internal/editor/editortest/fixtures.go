// Package editortest wires an in-memory product editor for tests.
package editortest

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/draft/drafttest"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	"github.com/fekuna/omnipos-backoffice/internal/editor/repository"
	"github.com/fekuna/omnipos-backoffice/internal/editor/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/session"
	"github.com/fekuna/omnipos-backoffice/internal/variation"
	"github.com/stretchr/testify/require"
)

const SessionID = "test-session"

type Env struct {
	*drafttest.Env
	Pages    *repository.MemRepository
	Sessions *session.MemoryStore
	Editor   editor.UseCase
}

func NewEnv(t testing.TB) *Env {
	t.Helper()
	d := drafttest.NewEnv(t)
	pages := repository.NewMemRepository(d.DB)
	sessions := session.NewMemoryStore()
	svc := variation.NewService(d.Draft, d.UC, d.DB, logger.NewNop())
	return &Env{
		Env:      d,
		Pages:    pages,
		Sessions: sessions,
		Editor:   usecase.NewEditorUseCase(d.Draft, svc, d.UC, pages, sessions, d.DB, logger.NewNop()),
	}
}

// Ctx is a context carrying the test session.
func Ctx() context.Context {
	return session.WithID(context.Background(), SessionID)
}

// Start creates a range named name for userID and returns its id.
func (e *Env) Start(t testing.TB, userID, name string) string {
	t.Helper()
	out, err := e.Editor.Start(Ctx(), userID, editor.Record{"name": {name}})
	require.NoError(t, err)
	return out.RangeID
}
