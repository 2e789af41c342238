package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/google/uuid"
)

// MemRepository keeps drafts in a memdb.Database, cascading deletes the way
// the schema does.
type MemRepository struct {
	DB *memdb.Database
}

func NewMemRepository(db *memdb.Database) *MemRepository {
	return &MemRepository{DB: db}
}

func errDuplicate(what, key string) error {
	return fmt.Errorf("%w: %w: %s %q", catalogue.ErrDuplicate, memdb.ErrUniqueViolation, what, key)
}

func (r *MemRepository) CreatePartialRange(ctx context.Context, pr *model.PartialProductRange) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if pr.OriginalRangeID != nil {
			if _, ok := s.Ranges[*pr.OriginalRangeID]; !ok {
				return fmt.Errorf("%w: range %s", memdb.ErrForeignKeyViolation, *pr.OriginalRangeID)
			}
		}
		s.PartialRanges[pr.ID] = *pr
		return nil
	})
}

func (r *MemRepository) FindPartialRangeByID(ctx context.Context, id string) (*model.PartialProductRange, error) {
	var out *model.PartialProductRange
	r.DB.Read(ctx, func(s *memdb.State) {
		if pr, ok := s.PartialRanges[id]; ok {
			out = &pr
		}
	})
	return out, nil
}

func (r *MemRepository) UpdatePartialRange(ctx context.Context, pr *model.PartialProductRange) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing, ok := s.PartialRanges[pr.ID]
		if !ok {
			return nil
		}
		existing.Name = pr.Name
		existing.Department = pr.Department
		existing.Description = pr.Description
		existing.SearchTerms = pr.SearchTerms
		existing.IsEndOfLine = pr.IsEndOfLine
		existing.Hidden = pr.Hidden
		existing.ManagedByID = pr.ManagedByID
		existing.UpdatedAt = pr.UpdatedAt
		s.PartialRanges[pr.ID] = existing
		return nil
	})
}

func deletePartialProduct(s *memdb.State, id string) {
	delete(s.PartialProducts, id)
	for k, l := range s.PartialValueLinks {
		if l.ProductID == id {
			delete(s.PartialValueLinks, k)
		}
	}
}

func deleteEdit(s *memdb.State, id string) {
	delete(s.Edits, id)
	delete(s.EditValues, id)
	delete(s.EditPages, id)
}

func (r *MemRepository) DeletePartialRange(ctx context.Context, id string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		delete(s.PartialRanges, id)
		for k, p := range s.PartialProducts {
			if p.RangeID == id {
				deletePartialProduct(s, k)
			}
		}
		for k, o := range s.PartialRangeOptions {
			if o.RangeID == id {
				delete(s.PartialRangeOptions, k)
			}
		}
		for k, e := range s.Edits {
			if e.PartialRangeID == id {
				deleteEdit(s, k)
			}
		}
		return nil
	})
}

func (r *MemRepository) CreatePartialProduct(ctx context.Context, p *model.PartialProduct) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.PartialRanges[p.RangeID]; !ok {
			return fmt.Errorf("%w: partial range %s", memdb.ErrForeignKeyViolation, p.RangeID)
		}
		for _, existing := range s.PartialProducts {
			if existing.SKU == p.SKU {
				return errDuplicate("partial product sku", p.SKU)
			}
		}
		s.PartialProducts[p.ID] = *p
		return nil
	})
}

func (r *MemRepository) FindPartialProductByID(ctx context.Context, id string) (*model.PartialProduct, error) {
	var out *model.PartialProduct
	r.DB.Read(ctx, func(s *memdb.State) {
		if p, ok := s.PartialProducts[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *MemRepository) UpdatePartialProduct(ctx context.Context, p *model.PartialProduct) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing, ok := s.PartialProducts[p.ID]
		if !ok {
			return nil
		}
		updated := *p
		updated.SKU = existing.SKU
		updated.RangeID = existing.RangeID
		updated.CreatedAt = existing.CreatedAt
		updated.OriginalProductID = existing.OriginalProductID
		updated.PreExisting = existing.PreExisting
		s.PartialProducts[p.ID] = updated
		return nil
	})
}

func (r *MemRepository) DeletePartialProduct(ctx context.Context, id string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		deletePartialProduct(s, id)
		return nil
	})
}

func (r *MemRepository) ListPartialProducts(ctx context.Context, rangeID string) ([]model.PartialProduct, error) {
	var out []model.PartialProduct
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, p := range s.PartialProducts {
			if p.RangeID == rangeID {
				out = append(out, p)
			}
		}
	})
	slices.SortFunc(out, func(a, b model.PartialProduct) int { return catalogue.CompareProducts(a.Product, b.Product) })
	return out, nil
}

func (r *MemRepository) ListPartialRangeOptions(ctx context.Context, rangeID string) ([]model.PartialRangeOption, error) {
	var out []model.PartialRangeOption
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, o := range s.PartialRangeOptions {
			if o.RangeID == rangeID {
				out = append(out, o)
			}
		}
	})
	slices.SortFunc(out, func(a, b model.PartialRangeOption) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *MemRepository) ReplacePartialRangeOptions(ctx context.Context, rangeID string, opts []model.PartialRangeOption) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for k, o := range s.PartialRangeOptions {
			if o.RangeID == rangeID {
				delete(s.PartialRangeOptions, k)
			}
		}
		seen := map[string]bool{}
		for i := range opts {
			opts[i].RangeID = rangeID
			if seen[opts[i].OptionID] {
				return errDuplicate("partial range option", opts[i].OptionID)
			}
			if _, ok := s.Options[opts[i].OptionID]; !ok {
				return fmt.Errorf("%w: option %s", memdb.ErrForeignKeyViolation, opts[i].OptionID)
			}
			seen[opts[i].OptionID] = true
			s.PartialRangeOptions[opts[i].ID] = opts[i]
		}
		return nil
	})
}

func (r *MemRepository) ListPartialValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error) {
	var out []model.ProductOptionValueLink
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, l := range s.PartialValueLinks {
			if s.PartialProducts[l.ProductID].RangeID == rangeID {
				out = append(out, l)
			}
		}
	})
	slices.SortFunc(out, func(a, b model.ProductOptionValueLink) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *MemRepository) ReplacePartialProductValueLinks(ctx context.Context, productID string, valueIDs []string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for k, l := range s.PartialValueLinks {
			if l.ProductID == productID {
				delete(s.PartialValueLinks, k)
			}
		}
		seen := map[string]bool{}
		for _, valueID := range valueIDs {
			if seen[valueID] {
				return errDuplicate("partial product option value", valueID)
			}
			if _, ok := s.OptionValues[valueID]; !ok {
				return fmt.Errorf("%w: option value %s", memdb.ErrForeignKeyViolation, valueID)
			}
			seen[valueID] = true
			link := model.ProductOptionValueLink{ID: uuid.New().String(), ProductID: productID, OptionValueID: valueID}
			s.PartialValueLinks[link.ID] = link
		}
		return nil
	})
}

func (r *MemRepository) CreateEdit(ctx context.Context, e *model.ProductEdit) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.PartialRanges[e.PartialRangeID]; !ok {
			return fmt.Errorf("%w: partial range %s", memdb.ErrForeignKeyViolation, e.PartialRangeID)
		}
		if e.ProductRangeID != nil {
			for _, existing := range s.Edits {
				if existing.ProductRangeID != nil && *existing.ProductRangeID == *e.ProductRangeID {
					return errDuplicate("product edit range", *e.ProductRangeID)
				}
			}
		}
		s.Edits[e.ID] = *e
		return nil
	})
}

func (r *MemRepository) FindEditByID(ctx context.Context, id string) (*model.ProductEdit, error) {
	var out *model.ProductEdit
	r.DB.Read(ctx, func(s *memdb.State) {
		if e, ok := s.Edits[id]; ok {
			out = &e
		}
	})
	return out, nil
}

func (r *MemRepository) FindEditByRangeID(ctx context.Context, rangeID string) (*model.ProductEdit, error) {
	var out *model.ProductEdit
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, e := range s.Edits {
			if e.ProductRangeID != nil && *e.ProductRangeID == rangeID {
				out = &e
				return
			}
		}
	})
	return out, nil
}

func (r *MemRepository) ListEdits(ctx context.Context) ([]model.ProductEdit, error) {
	var out []model.ProductEdit
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, e := range s.Edits {
			out = append(out, e)
		}
	})
	slices.SortFunc(out, func(a, b model.ProductEdit) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *MemRepository) AddEditOptionValues(ctx context.Context, editID string, valueIDs []string) error {
	if len(valueIDs) == 0 {
		return nil
	}
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.Edits[editID]; !ok {
			return fmt.Errorf("%w: edit %s", memdb.ErrForeignKeyViolation, editID)
		}
		if s.EditValues[editID] == nil {
			s.EditValues[editID] = map[string]bool{}
		}
		for _, id := range valueIDs {
			s.EditValues[editID][id] = true
		}
		return nil
	})
}

func (r *MemRepository) ListEditOptionValues(ctx context.Context, editID string) ([]string, error) {
	var out []string
	r.DB.Read(ctx, func(s *memdb.State) {
		for id := range s.EditValues[editID] {
			out = append(out, id)
		}
	})
	slices.Sort(out)
	return out, nil
}
