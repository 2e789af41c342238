// Package drafttest wires an in-memory draft use case for tests.
package drafttest

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/draft/repository"
	"github.com/fekuna/omnipos-backoffice/internal/draft/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/stretchr/testify/require"
)

type Env struct {
	*cataloguetest.Env
	Drafts *repository.MemRepository
	Draft  draft.UseCase
}

func NewEnv(t testing.TB, opts ...usecase.Option) *Env {
	t.Helper()
	cat := cataloguetest.NewEnv(t)
	return NewEnvWithLive(t, cat, cat.Repo, opts...)
}

// NewEnvWithLive lets a test substitute the live repository the draft use
// case writes through.
func NewEnvWithLive(t testing.TB, cat *cataloguetest.Env, live catalogue.Repository, opts ...usecase.Option) *Env {
	t.Helper()
	drafts := repository.NewMemRepository(cat.DB)
	return &Env{
		Env:    cat,
		Drafts: drafts,
		Draft:  usecase.NewDraftUseCase(drafts, live, cat.UC, cat.DB, logger.NewNop(), opts...),
	}
}

// Open opens rangeID for userID and loads the draft.
func (e *Env) Open(t testing.TB, rangeID, userID string) *draft.Draft {
	t.Helper()
	ctx := context.Background()
	edit, err := e.Draft.OpenEdit(ctx, rangeID, userID)
	require.NoError(t, err)
	d, err := e.Draft.LoadDraft(ctx, edit.ID)
	require.NoError(t, err)
	return d
}

// ValueID returns the id of option=value, creating both when missing.
func (e *Env) ValueID(t testing.TB, option, value string) string {
	t.Helper()
	ctx := context.Background()
	o, err := e.UC.GetOrCreateOption(ctx, option)
	require.NoError(t, err)
	v, err := e.UC.GetOrCreateOptionValue(ctx, o.ID, value)
	require.NoError(t, err)
	return v.ID
}

// OptionID returns the id of option, creating it when missing.
func (e *Env) OptionID(t testing.TB, option string) string {
	t.Helper()
	o, err := e.UC.GetOrCreateOption(context.Background(), option)
	require.NoError(t, err)
	return o.ID
}
