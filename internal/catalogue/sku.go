package catalogue

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
)

const (
	RangeSKUPrefix = "RNG_"
	MaxSKUAttempts = 100

	skuAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	skuBlockSize = 3
	skuBlocks    = 3
)

var (
	RangeSKUPattern   = regexp.MustCompile(`^RNG_[A-Z0-9]{3}_[A-Z0-9]{3}_[A-Z0-9]{3}$`)
	ProductSKUPattern = regexp.MustCompile(`^[A-Z0-9]{3}_[A-Z0-9]{3}_[A-Z0-9]{3}$`)
)

// RandomSKU returns three underscore-joined blocks of [A-Z0-9].
func RandomSKU() string {
	var b strings.Builder
	for i := 0; i < skuBlocks; i++ {
		if i > 0 {
			b.WriteByte('_')
		}
		for j := 0; j < skuBlockSize; j++ {
			b.WriteByte(skuAlphabet[rand.IntN(len(skuAlphabet))])
		}
	}
	return b.String()
}

// SKUGenerator draws candidate SKUs until one is unused. The database unique
// index remains the final arbiter.
type SKUGenerator struct {
	Exists func(ctx context.Context, sku string) (bool, error)
	Source func() string
}

func (g *SKUGenerator) RangeSKU(ctx context.Context) (string, error) {
	return g.generate(ctx, "catalogue.GenerateRangeSKU", RangeSKUPrefix)
}

func (g *SKUGenerator) ProductSKU(ctx context.Context) (string, error) {
	return g.generate(ctx, "catalogue.GenerateProductSKU", "")
}

func (g *SKUGenerator) generate(ctx context.Context, op, prefix string) (string, error) {
	source := g.Source
	if source == nil {
		source = RandomSKU
	}
	for attempt := 1; attempt <= MaxSKUAttempts; attempt++ {
		sku := prefix + source()
		exists, err := g.Exists(ctx, sku)
		if err != nil {
			return "", err
		}
		if !exists {
			skuAttempts.Observe(float64(attempt))
			return sku, nil
		}
	}
	skuExhausted.Inc()
	return "", apperr.Newf(apperr.ResourceExhausted, op, "no unused SKU found after %d attempts", MaxSKUAttempts)
}
