// Package variation turns selected options and values into a variation
// matrix and reconciles that matrix with the products of a draft.
package variation

import (
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// Axis is one selected option with its values in display order.
type Axis struct {
	Option model.ProductOption
	Values []model.ProductOptionValue
}

// Tuple holds one value per axis, in axis order.
type Tuple []model.ProductOptionValue

// Key identifies the tuple by its value ids.
func (t Tuple) Key() string {
	ids := make([]string, len(t))
	for i, v := range t {
		ids[i] = v.ID
	}
	return strings.Join(ids, "|")
}

func (t Tuple) ValueIDs() []string {
	ids := make([]string, len(t))
	for i, v := range t {
		ids[i] = v.ID
	}
	return ids
}

func (t Tuple) String() string {
	names := make([]string, len(t))
	for i, v := range t {
		names[i] = v.Value
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Expand returns the Cartesian product of the axes with the left-most axis
// varying slowest.
func Expand(axes []Axis) ([]Tuple, error) {
	const op = "variation.Expand"
	if len(axes) == 0 {
		return nil, apperr.Invalid(op, map[string]string{"options": "Select at least one option."})
	}
	seenOption := map[string]bool{}
	for _, a := range axes {
		if seenOption[a.Option.ID] {
			return nil, apperr.Invalid(op, map[string]string{"options": "Option " + a.Option.Name + " is selected twice."})
		}
		seenOption[a.Option.ID] = true
		if len(a.Values) < 2 {
			return nil, apperr.Invalid(op, map[string]string{"options": "Option " + a.Option.Name + " has fewer than two values."})
		}
		seenValue := map[string]bool{}
		for _, v := range a.Values {
			if seenValue[v.ID] {
				return nil, apperr.Invalid(op, map[string]string{"options": "Value " + v.Value + " is repeated for option " + a.Option.Name + "."})
			}
			seenValue[v.ID] = true
		}
	}

	size := 1
	for _, a := range axes {
		size *= len(a.Values)
	}
	out := make([]Tuple, 0, size)
	for i := 0; i < size; i++ {
		t := make(Tuple, len(axes))
		rest := i
		for j := len(axes) - 1; j >= 0; j-- {
			n := len(axes[j].Values)
			t[j] = axes[j].Values[rest%n]
			rest /= n
		}
		out = append(out, t)
	}
	return out, nil
}

// Remaining drops excluded from expanded. Every excluded tuple must be part
// of expanded.
func Remaining(expanded, excluded []Tuple) ([]Tuple, error) {
	const op = "variation.Remaining"
	all := make(map[string]bool, len(expanded))
	for _, t := range expanded {
		all[t.Key()] = true
	}
	drop := make(map[string]bool, len(excluded))
	for _, t := range excluded {
		if !all[t.Key()] {
			return nil, apperr.Invalid(op, map[string]string{"excluded": "Combination " + t.String() + " is not one of the selected values."})
		}
		drop[t.Key()] = true
	}
	out := make([]Tuple, 0, len(expanded)-len(drop))
	for _, t := range expanded {
		if !drop[t.Key()] {
			out = append(out, t)
		}
	}
	return out, nil
}

// productKey builds the product's key over optionIDs. ok is false when the
// product lacks a value for one of them.
func productKey(tree *catalogue.Tree, productID string, optionIDs []string) (string, bool) {
	ids := make([]string, len(optionIDs))
	for i, optionID := range optionIDs {
		v, ok := tree.ProductValue(productID, optionID)
		if !ok {
			return "", false
		}
		ids[i] = v.ID
	}
	return strings.Join(ids, "|"), true
}

func optionIDs(tuples []Tuple) []string {
	if len(tuples) == 0 {
		return nil
	}
	ids := make([]string, len(tuples[0]))
	for i, v := range tuples[0] {
		ids[i] = v.OptionID
	}
	return ids
}
