package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
	"github.com/google/uuid"
)

type MemRepository struct {
	DB *memdb.Database
}

func NewMemRepository(db *memdb.Database) *MemRepository {
	return &MemRepository{DB: db}
}

func (r *MemRepository) LockRunner(ctx context.Context, app, modelName string) (bool, error) {
	return r.DB.TryAdvisoryLock(ctx, lockKey(app, modelName))
}

func identity(l model.ModelValidationLog) string {
	return strings.Join([]string{l.App, l.Model, l.ObjectValidator, l.ValidationCheck, l.ErrorMessage}, "\x00")
}

func (r *MemRepository) ReplaceLogs(ctx context.Context, app, modelName string, rows []model.ModelValidationLog, seenAt time.Time) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing := map[string]model.ModelValidationLog{}
		for _, l := range s.ValidationLogs {
			if l.App == app && l.Model == modelName {
				existing[identity(l)] = l
			}
		}

		kept := map[string]bool{}
		for _, row := range rows {
			row.App, row.Model, row.LastSeen = app, modelName, seenAt
			if old, ok := existing[identity(row)]; ok {
				row.ID = old.ID
			} else if row.ID == "" {
				row.ID = uuid.New().String()
			}
			s.ValidationLogs[row.ID] = row
			kept[row.ID] = true
		}
		for _, l := range existing {
			if !kept[l.ID] {
				delete(s.ValidationLogs, l.ID)
			}
		}
		return nil
	})
}

func (r *MemRepository) ListLogs(ctx context.Context, filter *dto.LogFilter) ([]model.ModelValidationLog, error) {
	var out []model.ModelValidationLog
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, l := range s.ValidationLogs {
			if filter.App != "" && l.App != filter.App {
				continue
			}
			if filter.Model != "" && l.Model != filter.Model {
				continue
			}
			if l.ErrorLevel < filter.MinLevel {
				continue
			}
			out = append(out, l)
		}
	})
	slices.SortFunc(out, func(a, b model.ModelValidationLog) int {
		return cmp.Or(
			cmp.Compare(a.App, b.App),
			cmp.Compare(a.Model, b.Model),
			cmp.Compare(a.ObjectValidator, b.ObjectValidator),
			cmp.Compare(b.ErrorLevel, a.ErrorLevel),
			cmp.Compare(a.ValidationCheck, b.ValidationCheck),
			cmp.Compare(a.ErrorMessage, b.ErrorMessage),
		)
	})
	return out, nil
}
