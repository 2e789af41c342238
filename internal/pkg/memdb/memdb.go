// Package memdb is an in-memory stand-in for the Postgres schema. It keeps
// the transactional contract of the real database: every RunInTx works on a
// private copy of the state that replaces the committed state only when the
// function returns nil.
package memdb

import (
	"context"
	"maps"
	"sync"

	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// State holds every table. Rows are stored by value so a shallow copy of each
// map is a full snapshot.
type State struct {
	Ranges           map[string]model.ProductRange
	Products         map[string]model.Product
	CombinationLinks map[string]model.ProductCombinationLink
	Options          map[string]model.ProductOption
	OptionValues     map[string]model.ProductOptionValue
	RangeOptions     map[string]model.RangeOption
	ValueLinks       map[string]model.ProductOptionValueLink
	Barcodes         map[string]model.Barcode
	StockHistory     map[string]model.StockLevelHistory
	Bays             map[string]model.Bay
	BayLinks         map[string]model.ProductBayLink
	BayHistory       map[string]model.ProductBayHistory
	Lookups          map[model.LookupKind]map[string]model.Lookup
	VATRates         map[string]model.VATRate

	PartialRanges       map[string]model.PartialProductRange
	PartialProducts     map[string]model.PartialProduct
	PartialRangeOptions map[string]model.PartialRangeOption
	PartialValueLinks   map[string]model.ProductOptionValueLink
	Edits               map[string]model.ProductEdit
	EditValues          map[string]map[string]bool
	EditPages           map[string]map[string]model.ProductEditPage

	ValidationLogs map[string]model.ModelValidationLog

	Seq int64
}

func newState() *State {
	s := &State{
		Ranges:              map[string]model.ProductRange{},
		Products:            map[string]model.Product{},
		CombinationLinks:    map[string]model.ProductCombinationLink{},
		Options:             map[string]model.ProductOption{},
		OptionValues:        map[string]model.ProductOptionValue{},
		RangeOptions:        map[string]model.RangeOption{},
		ValueLinks:          map[string]model.ProductOptionValueLink{},
		Barcodes:            map[string]model.Barcode{},
		StockHistory:        map[string]model.StockLevelHistory{},
		Bays:                map[string]model.Bay{},
		BayLinks:            map[string]model.ProductBayLink{},
		BayHistory:          map[string]model.ProductBayHistory{},
		Lookups:             map[model.LookupKind]map[string]model.Lookup{},
		VATRates:            map[string]model.VATRate{},
		PartialRanges:       map[string]model.PartialProductRange{},
		PartialProducts:     map[string]model.PartialProduct{},
		PartialRangeOptions: map[string]model.PartialRangeOption{},
		PartialValueLinks:   map[string]model.ProductOptionValueLink{},
		Edits:               map[string]model.ProductEdit{},
		EditValues:          map[string]map[string]bool{},
		EditPages:           map[string]map[string]model.ProductEditPage{},
		ValidationLogs:      map[string]model.ModelValidationLog{},
	}
	for _, kind := range model.LookupKinds {
		s.Lookups[kind] = map[string]model.Lookup{}
	}
	return s
}

func (s *State) clone() *State {
	c := &State{
		Ranges:              maps.Clone(s.Ranges),
		Products:            maps.Clone(s.Products),
		CombinationLinks:    maps.Clone(s.CombinationLinks),
		Options:             maps.Clone(s.Options),
		OptionValues:        maps.Clone(s.OptionValues),
		RangeOptions:        maps.Clone(s.RangeOptions),
		ValueLinks:          maps.Clone(s.ValueLinks),
		Barcodes:            maps.Clone(s.Barcodes),
		StockHistory:        maps.Clone(s.StockHistory),
		Bays:                maps.Clone(s.Bays),
		BayLinks:            maps.Clone(s.BayLinks),
		BayHistory:          maps.Clone(s.BayHistory),
		Lookups:             make(map[model.LookupKind]map[string]model.Lookup, len(s.Lookups)),
		VATRates:            maps.Clone(s.VATRates),
		PartialRanges:       maps.Clone(s.PartialRanges),
		PartialProducts:     maps.Clone(s.PartialProducts),
		PartialRangeOptions: maps.Clone(s.PartialRangeOptions),
		PartialValueLinks:   maps.Clone(s.PartialValueLinks),
		Edits:               maps.Clone(s.Edits),
		EditValues:          make(map[string]map[string]bool, len(s.EditValues)),
		EditPages:           make(map[string]map[string]model.ProductEditPage, len(s.EditPages)),
		ValidationLogs:      maps.Clone(s.ValidationLogs),
		Seq:                 s.Seq,
	}
	for k, v := range s.Lookups {
		c.Lookups[k] = maps.Clone(v)
	}
	for k, v := range s.EditValues {
		c.EditValues[k] = maps.Clone(v)
	}
	for k, v := range s.EditPages {
		c.EditPages[k] = maps.Clone(v)
	}
	return c
}

// NextSeq returns a monotonically increasing sequence value, standing in for
// BIGSERIAL columns.
func (s *State) NextSeq() int64 {
	s.Seq++
	return s.Seq
}

type txKey struct{}

type tx struct {
	state *State
	locks []string
}

// Database is safe for concurrent use. Transactions are serialised.
type Database struct {
	mu    sync.Mutex
	state *State

	lockMu   sync.Mutex
	advisory map[string]bool
}

func New() *Database {
	return &Database{state: newState(), advisory: map[string]bool{}}
}

// RunInTx joins the surrounding transaction if ctx already carries one.
func (d *Database) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t := &tx{state: d.state.clone()}
	defer d.releaseLocks(t)

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	d.state = t.state
	return nil
}

// Read runs fn against the state visible from ctx.
func (d *Database) Read(ctx context.Context, fn func(s *State)) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		fn(t.state)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.state)
}

// Write runs fn inside the surrounding transaction, or in its own one.
func (d *Database) Write(ctx context.Context, fn func(s *State) error) error {
	return d.RunInTx(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*tx).state)
	})
}

// TryAdvisoryLock takes a lock on key held until the surrounding
// transaction ends.
func (d *Database) TryAdvisoryLock(ctx context.Context, key string) (bool, error) {
	t, ok := ctx.Value(txKey{}).(*tx)
	if !ok {
		return false, errNoTx
	}
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	if d.advisory[key] {
		return false, nil
	}
	d.advisory[key] = true
	t.locks = append(t.locks, key)
	return true, nil
}

func (d *Database) releaseLocks(t *tx) {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	for _, key := range t.locks {
		delete(d.advisory, key)
	}
}
