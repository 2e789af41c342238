// Package editor drives the product editor wizard: which pages a draft can
// show, where each submission leads, and the form data stored per page.
package editor

import (
	"net/url"
	"slices"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
)

type PageID string

const (
	BasicInfo               PageID = "basic_info"
	ProductInfo             PageID = "product_info"
	ListingOptions          PageID = "listing_options"
	VariationOptions        PageID = "variation_options"
	UnusedVariations        PageID = "unused_variations"
	VariationInfo           PageID = "variation_info"
	VariationListingOptions PageID = "variation_listing_options"
	Finish                  PageID = "finish"
)

var pages = []PageID{
	BasicInfo,
	ProductInfo,
	ListingOptions,
	VariationOptions,
	UnusedVariations,
	VariationInfo,
	VariationListingOptions,
	Finish,
}

var titles = map[PageID]string{
	BasicInfo:               "Basic Info",
	ProductInfo:             "Product Info",
	ListingOptions:          "Listing Options",
	VariationOptions:        "Variation Options",
	UnusedVariations:        "Unused Variations",
	VariationInfo:           "Variation Info",
	VariationListingOptions: "Variation Listing Options",
	Finish:                  "Finish",
}

// Pages returns every page in canonical order.
func Pages() []PageID {
	return slices.Clone(pages)
}

func (p PageID) Title() string {
	return titles[p]
}

func (p PageID) Valid() bool {
	_, ok := titles[p]
	return ok
}

// ParsePage fails with NotFound for unknown identifiers.
func ParsePage(s string) (PageID, error) {
	p := PageID(s)
	if !p.Valid() {
		return "", apperr.Newf(apperr.NotFound, "editor.ParsePage", "unknown page %q", s)
	}
	return p, nil
}

type ProductType string

const (
	TypeUnknown   ProductType = "UNKNOWN"
	TypeSingle    ProductType = "SINGLE"
	TypeVariation ProductType = "VARIATION"
)

// ProductTypeOf infers the product type from the number of draft products.
func ProductTypeOf(products int) ProductType {
	switch {
	case products >= 2:
		return TypeVariation
	case products == 1:
		return TypeSingle
	default:
		return TypeUnknown
	}
}

// Graph answers enablement and visibility questions for one draft. Stored
// holds the pages that have non-empty data.
type Graph struct {
	Type   ProductType
	Stored map[PageID]bool
}

func NewGraph(t ProductType, stored map[PageID]bool) *Graph {
	if stored == nil {
		stored = map[PageID]bool{}
	}
	return &Graph{Type: t, Stored: stored}
}

func (g *Graph) requires(p PageID) []PageID {
	switch p {
	case ProductInfo, ListingOptions, VariationOptions:
		return []PageID{BasicInfo}
	case UnusedVariations:
		return []PageID{ProductInfo}
	case VariationInfo:
		return []PageID{VariationOptions}
	case VariationListingOptions:
		return []PageID{UnusedVariations}
	case Finish:
		if g.Type == TypeVariation {
			return []PageID{VariationInfo}
		}
		return []PageID{ProductInfo}
	}
	return nil
}

func (g *Graph) belongs(p PageID) bool {
	switch p {
	case BasicInfo, ProductInfo:
		return true
	case ListingOptions:
		return g.Type == TypeSingle
	case Finish:
		return g.Type != TypeUnknown
	default:
		return g.Type == TypeVariation
	}
}

// Enabled reports whether every prerequisite of p has stored data.
func (g *Graph) Enabled(p PageID) bool {
	if !p.Valid() {
		return false
	}
	for _, req := range g.requires(p) {
		if !g.Stored[req] {
			return false
		}
	}
	return true
}

func (g *Graph) Visible(p PageID) bool {
	return g.Enabled(p) && g.belongs(p)
}

func (g *Graph) VisiblePages() []PageID {
	var out []PageID
	for _, p := range pages {
		if g.Visible(p) {
			out = append(out, p)
		}
	}
	return out
}

// Next resolves where a submission of page from leads. When no page fits
// the intent the editor stays on from.
func (g *Graph) Next(from PageID, in Intent) PageID {
	switch in.Kind {
	case IntentGoto:
		if g.Enabled(in.Target) {
			return in.Target
		}
		return g.step(from, 1)
	case IntentBack:
		return g.step(from, -1)
	default:
		return g.step(from, 1)
	}
}

func (g *Graph) step(from PageID, dir int) PageID {
	i := slices.Index(pages, from)
	if i < 0 {
		return from
	}
	for j := i + dir; j >= 0 && j < len(pages); j += dir {
		if g.Visible(pages[j]) {
			return pages[j]
		}
	}
	return from
}

// Resume returns the first visible page without stored data, or Finish.
func (g *Graph) Resume() PageID {
	for _, p := range pages {
		if p == Finish {
			continue
		}
		if g.Visible(p) && !g.Stored[p] {
			return p
		}
	}
	return Finish
}

type IntentKind int

const (
	IntentContinue IntentKind = iota
	IntentBack
	IntentGoto
)

// Intent is the navigation request carried by a page submission.
type Intent struct {
	Kind   IntentKind
	Target PageID
}

// ParseIntent reads the goto, back and continue buttons. Continue is the
// default.
func ParseIntent(values url.Values) Intent {
	if target := values.Get("goto"); target != "" {
		return Intent{Kind: IntentGoto, Target: PageID(target)}
	}
	if values.Has("back") || values.Get("action") == "back" {
		return Intent{Kind: IntentBack}
	}
	return Intent{Kind: IntentContinue}
}

var navigationFields = []string{"goto", "back", "continue", "action"}
