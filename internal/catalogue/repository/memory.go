package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
)

// MemRepository keeps the catalogue in a memdb.Database. It enforces the same
// unique constraints as the Postgres schema.
type MemRepository struct {
	DB *memdb.Database
}

func NewMemRepository(db *memdb.Database) *MemRepository {
	return &MemRepository{DB: db}
}

func errDuplicate(what, key string) error {
	return fmt.Errorf("%w: %w: %s %q", catalogue.ErrDuplicate, memdb.ErrUniqueViolation, what, key)
}

func sortedValues[K comparable, V any](m map[K]V, keep func(V) bool, compare func(a, b V) int) []V {
	var out []V
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compare)
	return out
}

func (r *MemRepository) CreateRange(ctx context.Context, pr *model.ProductRange) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for _, existing := range s.Ranges {
			if existing.SKU == pr.SKU {
				return errDuplicate("range sku", pr.SKU)
			}
		}
		s.Ranges[pr.ID] = *pr
		return nil
	})
}

func (r *MemRepository) FindRangeByID(ctx context.Context, id string) (*model.ProductRange, error) {
	var out *model.ProductRange
	r.DB.Read(ctx, func(s *memdb.State) {
		if pr, ok := s.Ranges[id]; ok {
			out = &pr
		}
	})
	return out, nil
}

func (r *MemRepository) UpdateRange(ctx context.Context, pr *model.ProductRange) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing, ok := s.Ranges[pr.ID]
		if !ok {
			return nil
		}
		updated := *pr
		updated.SKU = existing.SKU
		updated.CreatedAt = existing.CreatedAt
		s.Ranges[pr.ID] = updated
		return nil
	})
}

func (r *MemRepository) FindRanges(ctx context.Context, f *dto.RangeFilters) ([]model.ProductRange, int, error) {
	var ranges []model.ProductRange
	r.DB.Read(ctx, func(s *memdb.State) {
		query := strings.ToLower(f.SearchQuery)
		matchesProduct := map[string]bool{}
		if query != "" {
			for _, p := range s.Products {
				if strings.Contains(strings.ToLower(p.SKU), query) || p.Barcode == f.SearchQuery {
					matchesProduct[p.RangeID] = true
				}
			}
		}
		ranges = sortedValues(s.Ranges, func(pr model.ProductRange) bool {
			if f.Status != "" && pr.Status != f.Status {
				return false
			}
			if f.PublicOnly && !pr.IsPublic() {
				return false
			}
			if query == "" {
				return true
			}
			for _, field := range []string{pr.Name, pr.SKU, pr.Department, pr.SearchTerms} {
				if strings.Contains(strings.ToLower(field), query) {
					return true
				}
			}
			return matchesProduct[pr.ID]
		}, func(a, b model.ProductRange) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
	})

	count := len(ranges)
	if f.PageSize > 0 {
		start := (max(f.Page, 1) - 1) * f.PageSize
		if start >= len(ranges) {
			return nil, count, nil
		}
		ranges = ranges[start:min(start+f.PageSize, len(ranges))]
	}
	return ranges, count, nil
}

func (r *MemRepository) AllRanges(ctx context.Context) ([]model.ProductRange, error) {
	var out []model.ProductRange
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Ranges, nil, func(a, b model.ProductRange) int { return cmp.Compare(a.SKU, b.SKU) })
	})
	return out, nil
}

func (r *MemRepository) SKUExists(ctx context.Context, sku string) (bool, error) {
	exists := false
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, pr := range s.Ranges {
			exists = exists || pr.SKU == sku
		}
		for _, p := range s.Products {
			exists = exists || p.SKU == sku
		}
		for _, pr := range s.PartialRanges {
			exists = exists || pr.SKU == sku
		}
		for _, p := range s.PartialProducts {
			exists = exists || p.SKU == sku
		}
	})
	return exists, nil
}

func checkProductUnique(s *memdb.State, p *model.Product) error {
	for _, existing := range s.Products {
		if existing.ID == p.ID {
			continue
		}
		if existing.SKU == p.SKU {
			return errDuplicate("product sku", p.SKU)
		}
		if p.Barcode != "" && existing.Barcode == p.Barcode {
			return errDuplicate("product barcode", p.Barcode)
		}
	}
	return nil
}

func (r *MemRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.Ranges[p.RangeID]; !ok {
			return fmt.Errorf("%w: range %s", memdb.ErrForeignKeyViolation, p.RangeID)
		}
		if err := checkProductUnique(s, p); err != nil {
			return err
		}
		s.Products[p.ID] = *p
		return nil
	})
}

func (r *MemRepository) FindProductByID(ctx context.Context, id string) (*model.Product, error) {
	var out *model.Product
	r.DB.Read(ctx, func(s *memdb.State) {
		if p, ok := s.Products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *MemRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing, ok := s.Products[p.ID]
		if !ok {
			return nil
		}
		if err := checkProductUnique(s, p); err != nil {
			return err
		}
		updated := *p
		updated.SKU = existing.SKU
		updated.RangeID = existing.RangeID
		updated.CreatedAt = existing.CreatedAt
		s.Products[p.ID] = updated
		return nil
	})
}

// DeleteProduct cascades to the product's links and history like the schema.
func (r *MemRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		delete(s.Products, id)
		for k, l := range s.ValueLinks {
			if l.ProductID == id {
				delete(s.ValueLinks, k)
			}
		}
		for k, l := range s.BayLinks {
			if l.ProductID == id {
				delete(s.BayLinks, k)
			}
		}
		for k, h := range s.BayHistory {
			if h.ProductID == id {
				delete(s.BayHistory, k)
			}
		}
		for k, h := range s.StockHistory {
			if h.ProductID == id {
				delete(s.StockHistory, k)
			}
		}
		for k, l := range s.CombinationLinks {
			if l.ProductID == id {
				delete(s.CombinationLinks, k)
			}
		}
		for k, p := range s.PartialProducts {
			if p.OriginalProductID != nil && *p.OriginalProductID == id {
				p.OriginalProductID = nil
				s.PartialProducts[k] = p
			}
		}
		return nil
	})
}

func (r *MemRepository) ListProducts(ctx context.Context, rangeID string) ([]model.Product, error) {
	var out []model.Product
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Products, func(p model.Product) bool { return p.RangeID == rangeID }, catalogue.CompareProducts)
	})
	return out, nil
}

func (r *MemRepository) AllProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Products, nil, func(a, b model.Product) int {
			return cmp.Or(cmp.Compare(a.RangeID, b.RangeID), catalogue.CompareProducts(a, b))
		})
	})
	return out, nil
}

func (r *MemRepository) CreateOption(ctx context.Context, o *model.ProductOption) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for _, existing := range s.Options {
			if existing.Name == o.Name {
				return errDuplicate("option name", o.Name)
			}
		}
		s.Options[o.ID] = *o
		return nil
	})
}

func (r *MemRepository) FindOptionByID(ctx context.Context, id string) (*model.ProductOption, error) {
	var out *model.ProductOption
	r.DB.Read(ctx, func(s *memdb.State) {
		if o, ok := s.Options[id]; ok {
			out = &o
		}
	})
	return out, nil
}

func (r *MemRepository) FindOptionByName(ctx context.Context, name string) (*model.ProductOption, error) {
	var out *model.ProductOption
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, o := range s.Options {
			if o.Name == name {
				out = &o
				return
			}
		}
	})
	return out, nil
}

func compareOptions(a, b model.ProductOption) int {
	return cmp.Or(cmp.Compare(a.Ordering, b.Ordering), cmp.Compare(a.Name, b.Name))
}

func compareValues(a, b model.ProductOptionValue) int {
	return cmp.Compare(a.Seq, b.Seq)
}

func (r *MemRepository) ListOptions(ctx context.Context) ([]model.ProductOption, error) {
	var out []model.ProductOption
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Options, nil, compareOptions)
	})
	return out, nil
}

func (r *MemRepository) CreateOptionValue(ctx context.Context, v *model.ProductOptionValue) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.Options[v.OptionID]; !ok {
			return fmt.Errorf("%w: option %s", memdb.ErrForeignKeyViolation, v.OptionID)
		}
		for _, existing := range s.OptionValues {
			if existing.OptionID == v.OptionID && existing.Value == v.Value {
				return errDuplicate("option value", v.Value)
			}
		}
		v.Seq = s.NextSeq()
		s.OptionValues[v.ID] = *v
		return nil
	})
}

func (r *MemRepository) FindOptionValue(ctx context.Context, optionID, value string) (*model.ProductOptionValue, error) {
	var out *model.ProductOptionValue
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, v := range s.OptionValues {
			if v.OptionID == optionID && v.Value == value {
				out = &v
				return
			}
		}
	})
	return out, nil
}

func (r *MemRepository) ListOptionValues(ctx context.Context, optionID string) ([]model.ProductOptionValue, error) {
	var out []model.ProductOptionValue
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.OptionValues, func(v model.ProductOptionValue) bool { return v.OptionID == optionID }, compareValues)
	})
	return out, nil
}

func (r *MemRepository) FindOptionValuesByIDs(ctx context.Context, ids []string) ([]model.ProductOptionValue, error) {
	var out []model.ProductOptionValue
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, id := range ids {
			if v, ok := s.OptionValues[id]; ok && !slices.ContainsFunc(out, func(o model.ProductOptionValue) bool { return o.ID == id }) {
				out = append(out, v)
			}
		}
	})
	slices.SortFunc(out, compareValues)
	return out, nil
}

func (r *MemRepository) AllOptionValues(ctx context.Context) ([]model.ProductOptionValue, error) {
	var out []model.ProductOptionValue
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.OptionValues, nil, func(a, b model.ProductOptionValue) int {
			return cmp.Or(cmp.Compare(a.OptionID, b.OptionID), compareValues(a, b))
		})
	})
	return out, nil
}

func (r *MemRepository) ListRangeOptions(ctx context.Context, rangeID string) ([]model.RangeOption, error) {
	var out []model.RangeOption
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.RangeOptions, func(o model.RangeOption) bool { return o.RangeID == rangeID },
			func(a, b model.RangeOption) int { return cmp.Compare(a.ID, b.ID) })
	})
	return out, nil
}

func (r *MemRepository) ReplaceRangeOptions(ctx context.Context, rangeID string, opts []model.RangeOption) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for k, o := range s.RangeOptions {
			if o.RangeID == rangeID {
				delete(s.RangeOptions, k)
			}
		}
		seen := map[string]bool{}
		for i := range opts {
			opts[i].RangeID = rangeID
			if seen[opts[i].OptionID] {
				return errDuplicate("range option", opts[i].OptionID)
			}
			seen[opts[i].OptionID] = true
			s.RangeOptions[opts[i].ID] = opts[i]
		}
		return nil
	})
}

func (r *MemRepository) ListRangeValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error) {
	var out []model.ProductOptionValueLink
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.ValueLinks, func(l model.ProductOptionValueLink) bool {
			return s.Products[l.ProductID].RangeID == rangeID
		}, func(a, b model.ProductOptionValueLink) int {
			return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.ID, b.ID))
		})
	})
	return out, nil
}

func (r *MemRepository) ReplaceProductValueLinks(ctx context.Context, productID string, valueIDs []string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for k, l := range s.ValueLinks {
			if l.ProductID == productID {
				delete(s.ValueLinks, k)
			}
		}
		seen := map[string]bool{}
		for _, valueID := range valueIDs {
			if seen[valueID] {
				return errDuplicate("product option value", valueID)
			}
			seen[valueID] = true
			link := model.ProductOptionValueLink{ID: newID(), ProductID: productID, OptionValueID: valueID}
			s.ValueLinks[link.ID] = link
		}
		return nil
	})
}

func (r *MemRepository) AddBarcodes(ctx context.Context, codes []model.Barcode) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for i := range codes {
			for _, existing := range s.Barcodes {
				if existing.Barcode == codes[i].Barcode {
					return errDuplicate("barcode", codes[i].Barcode)
				}
			}
			codes[i].Seq = s.NextSeq()
			s.Barcodes[codes[i].ID] = codes[i]
		}
		return nil
	})
}

// DrawBarcode relies on memdb serialising transactions in place of row locks.
func (r *MemRepository) DrawBarcode(ctx context.Context) (*model.Barcode, error) {
	var out *model.Barcode
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, b := range s.Barcodes {
			if b.Available && (out == nil || b.Seq < out.Seq) {
				b := b
				out = &b
			}
		}
	})
	return out, nil
}

func (r *MemRepository) MarkBarcodeUsed(ctx context.Context, b *model.Barcode) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		existing, ok := s.Barcodes[b.ID]
		if !ok {
			return nil
		}
		existing.Available = false
		existing.UsedAt = b.UsedAt
		existing.UsedByID = b.UsedByID
		existing.UsedFor = b.UsedFor
		s.Barcodes[b.ID] = existing
		return nil
	})
}

func (r *MemRepository) AllBarcodes(ctx context.Context) ([]model.Barcode, error) {
	var out []model.Barcode
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Barcodes, nil, func(a, b model.Barcode) int { return cmp.Compare(a.Seq, b.Seq) })
	})
	return out, nil
}

func (r *MemRepository) LatestStockChange(ctx context.Context, productID string) (*model.StockLevelHistory, error) {
	var out *model.StockLevelHistory
	r.DB.Read(ctx, func(s *memdb.State) {
		superseded := map[string]bool{}
		for _, h := range s.StockHistory {
			if h.PreviousChangeID != nil {
				superseded[*h.PreviousChangeID] = true
			}
		}
		for _, h := range s.StockHistory {
			if h.ProductID != productID || superseded[h.ID] {
				continue
			}
			if out == nil || h.Timestamp.After(out.Timestamp) {
				h := h
				out = &h
			}
		}
	})
	return out, nil
}

func (r *MemRepository) AppendStockChange(ctx context.Context, h *model.StockLevelHistory) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if h.PreviousChangeID != nil {
			for _, existing := range s.StockHistory {
				if existing.PreviousChangeID != nil && *existing.PreviousChangeID == *h.PreviousChangeID {
					return errDuplicate("stock history previous change", *h.PreviousChangeID)
				}
			}
		}
		s.StockHistory[h.ID] = *h
		return nil
	})
}

func (r *MemRepository) AllStockChanges(ctx context.Context) ([]model.StockLevelHistory, error) {
	var out []model.StockLevelHistory
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.StockHistory, nil, func(a, b model.StockLevelHistory) int {
			return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.ID, b.ID))
		})
	})
	return out, nil
}

func compareBays(a, b model.Bay) int {
	return cmp.Or(cmp.Compare(a.Warehouse, b.Warehouse), cmp.Compare(a.Name, b.Name))
}

func (r *MemRepository) CreateBay(ctx context.Context, b *model.Bay) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for _, existing := range s.Bays {
			if existing.Warehouse == b.Warehouse && existing.Name == b.Name {
				return errDuplicate("bay", b.Name)
			}
		}
		s.Bays[b.ID] = *b
		return nil
	})
}

func (r *MemRepository) ListBays(ctx context.Context) ([]model.Bay, error) {
	var out []model.Bay
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Bays, nil, compareBays)
	})
	return out, nil
}

func (r *MemRepository) ListProductBays(ctx context.Context, productID string) ([]model.Bay, error) {
	var out []model.Bay
	r.DB.Read(ctx, func(s *memdb.State) {
		for _, l := range s.BayLinks {
			if l.ProductID == productID {
				out = append(out, s.Bays[l.BayID])
			}
		}
	})
	slices.SortFunc(out, compareBays)
	return out, nil
}

func (r *MemRepository) AddProductBay(ctx context.Context, link *model.ProductBayLink) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		if _, ok := s.Bays[link.BayID]; !ok {
			return fmt.Errorf("%w: bay %s", memdb.ErrForeignKeyViolation, link.BayID)
		}
		for _, existing := range s.BayLinks {
			if existing.ProductID == link.ProductID && existing.BayID == link.BayID {
				return errDuplicate("product bay", link.BayID)
			}
		}
		s.BayLinks[link.ID] = *link
		return nil
	})
}

func (r *MemRepository) RemoveProductBay(ctx context.Context, productID, bayID string) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for k, l := range s.BayLinks {
			if l.ProductID == productID && l.BayID == bayID {
				delete(s.BayLinks, k)
			}
		}
		return nil
	})
}

func (r *MemRepository) AppendBayHistory(ctx context.Context, h *model.ProductBayHistory) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		s.BayHistory[h.ID] = *h
		return nil
	})
}

func (r *MemRepository) CreateLookup(ctx context.Context, kind model.LookupKind, l *model.Lookup) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		rows, ok := s.Lookups[kind]
		if !ok {
			return fmt.Errorf("unknown lookup %q", kind)
		}
		for _, existing := range rows {
			if existing.Name == l.Name {
				return errDuplicate(string(kind), l.Name)
			}
		}
		rows[l.ID] = *l
		return nil
	})
}

func (r *MemRepository) ListLookups(ctx context.Context, kind model.LookupKind, activeOnly bool) ([]model.Lookup, error) {
	var out []model.Lookup
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.Lookups[kind], func(l model.Lookup) bool { return !activeOnly || l.Active },
			func(a, b model.Lookup) int { return cmp.Compare(a.Name, b.Name) })
	})
	return out, nil
}

func (r *MemRepository) CreateVATRate(ctx context.Context, v *model.VATRate) error {
	return r.DB.Write(ctx, func(s *memdb.State) error {
		for _, existing := range s.VATRates {
			if existing.Name == v.Name {
				return errDuplicate("vat rate", v.Name)
			}
		}
		s.VATRates[v.ID] = *v
		return nil
	})
}

func (r *MemRepository) ListVATRates(ctx context.Context, activeOnly bool) ([]model.VATRate, error) {
	var out []model.VATRate
	r.DB.Read(ctx, func(s *memdb.State) {
		out = sortedValues(s.VATRates, func(v model.VATRate) bool { return !activeOnly || v.Active },
			func(a, b model.VATRate) int {
				return cmp.Or(a.Percentage.Cmp(b.Percentage), cmp.Compare(a.Name, b.Name))
			})
	})
	return out, nil
}
