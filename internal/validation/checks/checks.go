// Package checks holds the validation runners for catalogue, warehouse and
// platform data.
package checks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/channel"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
)

const (
	AppCatalogue = "catalogue"
	AppWarehouse = "warehouse"
	AppPlatform  = "platform"
)

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// Deps is what the runners read from.
type Deps struct {
	Repo      catalogue.Repository
	Catalogue catalogue.UseCase
	Platform  channel.Platform
}

// Register adds every runner to reg. The platform runner is skipped when no
// platform is configured.
func Register(reg *validation.Registry, d Deps) {
	reg.Register(AppCatalogue, "product_range", ranges(d))
	reg.Register(AppCatalogue, "product", products(d))
	reg.Register(AppCatalogue, "product_option_value", optionValues(d))
	reg.Register(AppCatalogue, "barcode", barcodes(d))
	reg.Register(AppWarehouse, "bay", bays(d))
	reg.Register(AppWarehouse, "stock_level_history", stockChains(d))
	if d.Platform != nil {
		reg.Register(AppPlatform, "bay", platformBays(d))
	}
}

func pass() (string, bool) {
	return "", true
}

func fail(format string, args ...any) (string, bool) {
	return fmt.Sprintf(format, args...), false
}

// untidy reports leading, trailing or doubled whitespace.
func untidy(s string) bool {
	return strings.TrimSpace(s) != s || strings.Contains(s, "  ")
}
