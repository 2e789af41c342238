package checks

import (
	"context"
	"regexp"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
)

var bayNamePattern = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)

func bays(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		all, err := d.Repo.ListBays(ctx)
		if err != nil {
			return nil, err
		}
		warehouses := map[string]map[string]bool{}
		for _, b := range all {
			if warehouses[b.Name] == nil {
				warehouses[b.Name] = map[string]bool{}
			}
			warehouses[b.Name][b.Warehouse] = true
		}

		return []validation.Validator{
			validation.NewObjectValidator("bays", all,
				validation.Check[model.Bay]{Name: "warehouse_set", Level: validation.Error,
					Test: func(b model.Bay) (string, bool) {
						if strings.TrimSpace(b.Warehouse) != "" {
							return pass()
						}
						return fail("Bay %s has no warehouse", b.Name)
					}},
				validation.Check[model.Bay]{Name: "unique_name", Level: validation.Warning,
					Test: func(b model.Bay) (string, bool) {
						if len(warehouses[b.Name]) < 2 {
							return pass()
						}
						return fail("Bay name %s is used in %d warehouses", b.Name, len(warehouses[b.Name]))
					}},
				validation.Check[model.Bay]{Name: "name_format", Level: validation.Formatting,
					Test: func(b model.Bay) (string, bool) {
						if bayNamePattern.MatchString(b.Name) {
							return pass()
						}
						return fail("Bay name %q should be upper case letters and digits separated by dashes", b.Name)
					}},
			),
		}, nil
	}
}

// stockChain is one product's stock history.
type stockChain struct {
	ProductID string
	Changes   []model.StockLevelHistory
}

func stockChains(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		changes, err := d.Repo.AllStockChanges(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]model.StockLevelHistory, len(changes))
		var chains []stockChain
		for _, c := range changes {
			byID[c.ID] = c
			if n := len(chains); n == 0 || chains[n-1].ProductID != c.ProductID {
				chains = append(chains, stockChain{ProductID: c.ProductID})
			}
			chains[len(chains)-1].Changes = append(chains[len(chains)-1].Changes, c)
		}

		return []validation.Validator{
			validation.NewObjectValidator("stock_changes", changes,
				validation.Check[model.StockLevelHistory]{Name: "previous_exists", Level: validation.Critical,
					Test: func(c model.StockLevelHistory) (string, bool) {
						if c.PreviousChangeID == nil {
							return pass()
						}
						if _, ok := byID[*c.PreviousChangeID]; ok {
							return pass()
						}
						return fail("Stock change %s points at missing change %s", c.ID, *c.PreviousChangeID)
					}},
				validation.Check[model.StockLevelHistory]{Name: "same_product", Level: validation.Critical,
					Test: func(c model.StockLevelHistory) (string, bool) {
						if c.PreviousChangeID == nil {
							return pass()
						}
						prev, ok := byID[*c.PreviousChangeID]
						if !ok || prev.ProductID == c.ProductID {
							return pass()
						}
						return fail("Stock change %s for product %s follows a change for product %s", c.ID, c.ProductID, prev.ProductID)
					}},
				validation.Check[model.StockLevelHistory]{Name: "not_negative", Level: validation.Warning,
					Test: func(c model.StockLevelHistory) (string, bool) {
						if c.StockLevel >= 0 {
							return pass()
						}
						return fail("Stock change %s sets product %s to %d", c.ID, c.ProductID, c.StockLevel)
					}},
			),
			validation.NewObjectValidator("stock_chains", chains,
				validation.Check[stockChain]{Name: "single_root", Level: validation.Error,
					Test: func(ch stockChain) (string, bool) {
						roots := 0
						for _, c := range ch.Changes {
							if c.PreviousChangeID == nil {
								roots++
							}
						}
						if roots == 1 {
							return pass()
						}
						return fail("Product %s stock history has %d starting entries", ch.ProductID, roots)
					}},
				validation.Check[stockChain]{Name: "single_head", Level: validation.Error,
					Test: func(ch stockChain) (string, bool) {
						followed := map[string]bool{}
						for _, c := range ch.Changes {
							if c.PreviousChangeID != nil {
								followed[*c.PreviousChangeID] = true
							}
						}
						heads := 0
						for _, c := range ch.Changes {
							if !followed[c.ID] {
								heads++
							}
						}
						if heads == 1 {
							return pass()
						}
						return fail("Product %s stock history has %d latest entries", ch.ProductID, heads)
					}},
			),
		}, nil
	}
}
