package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
)

type MemRepository struct {
	DB *memdb.Database
}

func NewMemRepository(db *memdb.Database) *MemRepository {
	return &MemRepository{DB: db}
}

func (r *MemRepository) SavePage(ctx context.Context, p *model.ProductEditPage) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.Edits[p.EditID]; !ok {
			return fmt.Errorf("%w: product edit %s", memdb.ErrForeignKeyViolation, p.EditID)
		}
		if s.EditPages[p.EditID] == nil {
			s.EditPages[p.EditID] = map[string]model.ProductEditPage{}
		}
		row := *p
		row.Data = slices.Clone(p.Data)
		s.EditPages[p.EditID][p.Page] = row
		return nil
	})
}

func (r *MemRepository) ListPages(ctx context.Context, editID string) ([]model.ProductEditPage, error) {
	var out []model.ProductEditPage
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, p := range s.EditPages[editID] {
			out = append(out, p)
		}
	})
	slices.SortFunc(out, func(a, b model.ProductEditPage) int { return cmp.Compare(a.Page, b.Page) })
	return out, nil
}
