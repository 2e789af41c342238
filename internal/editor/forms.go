package editor

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/variation"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	_ = validate.RegisterValidation("money", validateMoney)
	_ = validate.RegisterValidation("barcode", validateBarcode)
}

// validateMoney accepts non-negative amounts with at most two decimal places.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Exponent() >= -2
}

func validateBarcode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 8 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "number":
		return "Enter a whole number."
	case "money":
		return "Enter a non-negative amount with at most two decimal places."
	case "barcode":
		return "Enter a barcode of 8 to 14 digits."
	default:
		return "Enter a valid value."
	}
}

// invalid turns validator errors into an InvalidInput error. Field names get
// suffix appended so per-row forms can point at the right input.
func invalid(op, suffix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.InvalidInput, op, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()+suffix] = fieldMessage(fe)
	}
	return apperr.Invalid(op, fields)
}

// Normalize returns r holding every static field page submits, so a page
// posted with blank inputs still counts as stored.
func Normalize(page PageID, r Record) Record {
	switch page {
	case BasicInfo:
		return r.With(basicInfoFields...)
	case ProductInfo:
		return r.With(productInfoFields...)
	case ListingOptions, VariationListingOptions:
		return r.With(listingFields...)
	case VariationOptions:
		return r.With(variationOptionsFields...)
	case UnusedVariations:
		return r.With(unusedVariationsFields...)
	}
	return r
}

func bind[T any](op string, r Record) (*T, error) {
	var form T
	if err := binding.MapFormWithTag(&form, r.filled(), "form"); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, op, err)
	}
	if err := validate.Struct(&form); err != nil {
		return nil, invalid(op, "", err)
	}
	return &form, nil
}

type BasicInfoForm struct {
	Name        string `form:"name" validate:"required,max=200"`
	Department  string `form:"department" validate:"max=100"`
	Description string `form:"description"`
	SearchTerms string `form:"search_terms" validate:"max=500"`
	EndOfLine   bool   `form:"end_of_line"`
	Hidden      bool   `form:"hidden"`
}

var basicInfoFields = []string{"name", "department", "description", "search_terms", "end_of_line", "hidden"}

func BindBasicInfo(r Record) (*BasicInfoForm, error) {
	f, err := bind[BasicInfoForm]("editor.BasicInfo", r)
	if err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return nil, apperr.Invalid("editor.BasicInfo", map[string]string{"name": "This field is required."})
	}
	return f, nil
}

func (f *BasicInfoForm) CreateInput(userID string) *catdto.CreateRangeInput {
	return &catdto.CreateRangeInput{
		Name:        f.Name,
		Department:  f.Department,
		Description: f.Description,
		SearchTerms: f.SearchTerms,
		ManagedByID: userID,
	}
}

func (f *BasicInfoForm) DetailsInput() *dto.RangeDetailsInput {
	return &dto.RangeDetailsInput{
		Name:        f.Name,
		Department:  f.Department,
		Description: f.Description,
		SearchTerms: f.SearchTerms,
		IsEndOfLine: &f.EndOfLine,
		Hidden:      &f.Hidden,
	}
}

// ProductInfoForm carries the scalar attributes of one product, or the
// defaults shared by every variation.
type ProductInfoForm struct {
	SupplierID     string `form:"supplier" validate:"max=64"`
	SupplierSKU    string `form:"supplier_sku" validate:"max=100"`
	PurchasePrice  string `form:"purchase_price" validate:"omitempty,money"`
	RetailPrice    string `form:"retail_price" validate:"omitempty,money"`
	Price          string `form:"price" validate:"omitempty,money"`
	VATRateID      string `form:"vat_rate" validate:"max=64"`
	WeightGrams    string `form:"weight_grams" validate:"omitempty,number"`
	HeightMM       string `form:"height_mm" validate:"omitempty,number"`
	WidthMM        string `form:"width_mm" validate:"omitempty,number"`
	LengthMM       string `form:"length_mm" validate:"omitempty,number"`
	PackageTypeID  string `form:"package_type" validate:"max=64"`
	BrandID        string `form:"brand" validate:"max=64"`
	ManufacturerID string `form:"manufacturer" validate:"max=64"`
	GenderID       string `form:"gender" validate:"max=64"`
}

var productInfoFields = []string{
	"supplier", "supplier_sku", "purchase_price", "retail_price", "price", "vat_rate",
	"weight_grams", "height_mm", "width_mm", "length_mm",
	"package_type", "brand", "manufacturer", "gender",
}

func BindProductInfo(r Record) (*ProductInfoForm, error) {
	return bind[ProductInfoForm]("editor.ProductInfo", r)
}

// Apply writes the fields present in r onto info. Blank values clear the
// attribute.
func (f *ProductInfoForm) Apply(info *model.ProductInfo, r Record) {
	setters := map[string]func(){
		"supplier":       func() { info.SupplierID = optional(f.SupplierID) },
		"supplier_sku":   func() { info.SupplierSKU = strings.TrimSpace(f.SupplierSKU) },
		"purchase_price": func() { info.PurchasePrice = money(f.PurchasePrice) },
		"retail_price":   func() { info.RetailPrice = money(f.RetailPrice) },
		"price":          func() { info.Price = money(f.Price) },
		"vat_rate":       func() { info.VATRateID = optional(f.VATRateID) },
		"weight_grams":   func() { info.WeightGrams = whole(f.WeightGrams) },
		"height_mm":      func() { info.HeightMM = whole(f.HeightMM) },
		"width_mm":       func() { info.WidthMM = whole(f.WidthMM) },
		"length_mm":      func() { info.LengthMM = whole(f.LengthMM) },
		"package_type":   func() { info.PackageTypeID = optional(f.PackageTypeID) },
		"brand":          func() { info.BrandID = optional(f.BrandID) },
		"manufacturer":   func() { info.ManufacturerID = optional(f.ManufacturerID) },
		"gender":         func() { info.GenderID = optional(f.GenderID) },
	}
	for _, field := range productInfoFields {
		if r.Has(field) {
			setters[field]()
		}
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func money(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func whole(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// VariationOptionsForm pairs each option with a comma separated value list.
// Excluded rows name one value per option in the same order.
type VariationOptionsForm struct {
	Options  []string `form:"option" validate:"required,dive,required,max=50"`
	Values   []string `form:"values" validate:"dive,required"`
	Excluded []string `form:"excluded"`
}

var variationOptionsFields = []string{"option", "values", "excluded"}

func BindVariationOptions(r Record) (*VariationOptionsForm, error) {
	const op = "editor.VariationOptions"
	f, err := bind[VariationOptionsForm](op, r)
	if err != nil {
		return nil, err
	}
	if len(f.Values) != len(f.Options) {
		return nil, apperr.Invalid(op, map[string]string{"values": "Enter the values for every option."})
	}
	return f, nil
}

func (f *VariationOptionsForm) Selections() []variation.Selection {
	out := make([]variation.Selection, len(f.Options))
	for i, name := range f.Options {
		out[i] = variation.Selection{Option: strings.TrimSpace(name), Values: splitList(f.Values[i])}
	}
	return out
}

func (f *VariationOptionsForm) ExcludedRows() [][]string {
	return excludedRows(f.Excluded)
}

type UnusedVariationsForm struct {
	Excluded []string `form:"excluded"`
}

var unusedVariationsFields = []string{"excluded"}

func BindUnusedVariations(r Record) (*UnusedVariationsForm, error) {
	return bind[UnusedVariationsForm]("editor.UnusedVariations", r)
}

func (f *UnusedVariationsForm) ExcludedRows() [][]string {
	return excludedRows(f.Excluded)
}

func excludedRows(rows []string) [][]string {
	var out [][]string
	for _, row := range rows {
		if vals := splitList(row); len(vals) > 0 {
			out = append(out, vals)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ListingForm assigns one value per listing option. With Products set, each
// entry applies to the product at the same index only.
type ListingForm struct {
	Products []string `form:"product"`
	Options  []string `form:"listing_option" validate:"dive,required,max=50"`
	Values   []string `form:"listing_value" validate:"dive,max=100"`
}

var listingFields = []string{"listing_option", "listing_value"}

func BindListing(r Record, perProduct bool) (*ListingForm, error) {
	const op = "editor.Listing"
	f, err := bind[ListingForm](op, r)
	if err != nil {
		return nil, err
	}
	if len(f.Values) != len(f.Options) || (perProduct && len(f.Products) != len(f.Options)) {
		return nil, apperr.Invalid(op, map[string]string{"listing_value": "Enter a value for every listing option."})
	}
	return f, nil
}

// VariationRow holds the per-variation overrides posted as "<field>:<id>".
type VariationRow struct {
	ProductInfoForm
	Barcode   string `form:"barcode" validate:"omitempty,barcode"`
	EndOfLine bool   `form:"end_of_line"`
}

var variationRowFields = append([]string{"barcode", "end_of_line"}, productInfoFields...)

// RowRecord extracts the fields posted for productID.
func RowRecord(r Record, productID string) Record {
	row := Record{}
	for _, field := range variationRowFields {
		if v, ok := r[field+":"+productID]; ok {
			row[field] = v
		}
	}
	return row
}

func BindVariationRow(r Record, productID string) (*VariationRow, Record, error) {
	row := RowRecord(r, productID)
	var form VariationRow
	if err := binding.MapFormWithTag(&form, row.filled(), "form"); err != nil {
		return nil, nil, apperr.Wrap(apperr.InvalidInput, "editor.VariationRow", err)
	}
	if err := validate.Struct(&form); err != nil {
		return nil, nil, invalid("editor.VariationRow", ":"+productID, err)
	}
	form.Barcode = strings.TrimSpace(form.Barcode)
	return &form, row, nil
}

// BindVariation reads a single product form whose fields carry no suffix.
func BindVariation(r Record) (*VariationRow, error) {
	f, err := bind[VariationRow]("editor.Variation", r)
	if err != nil {
		return nil, err
	}
	f.Barcode = strings.TrimSpace(f.Barcode)
	return f, nil
}

// Apply writes the posted fields onto p.
func (f *VariationRow) Apply(p *model.PartialProduct, row Record) {
	f.ProductInfoForm.Apply(&p.ProductInfo, row)
	if row.Has("barcode") {
		p.Barcode = f.Barcode
	}
	if row.Has("end_of_line") {
		p.IsEndOfLine = f.EndOfLine
	}
}
