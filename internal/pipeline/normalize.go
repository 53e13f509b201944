package pipeline

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ecommerce-dashboard/internal/models"
)

// DateLayout is day/month/year; single digit day and month are accepted.
const DateLayout = "2/1/2006"

const (
	reasonNullQuantity = "null Quantity"
	reasonBlankRow     = "blank row"
)

var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
}

var (
	validate  = validator.New(validator.WithRequiredStructEnabled())
	lowerCase = cases.Lower(language.Und)
	upperCase = cases.Upper(language.Und)
)

type Tables struct {
	Transactions []models.Transaction
	Users        []models.User
	Products     []models.Product
}

// Normalize canonicalizes the raw tables into typed records. Blank rows and
// rows with a null Quantity are dropped and tallied in drops.
func Normalize(raw *RawTables, drops models.DropReport) (*Tables, error) {
	txs, err := normalizeTransactions(raw.Transactions, drops)
	if err != nil {
		return nil, err
	}
	users, err := normalizeUsers(raw.Users, drops)
	if err != nil {
		return nil, err
	}
	products, err := normalizeProducts(raw.Products, drops)
	if err != nil {
		return nil, err
	}
	return &Tables{Transactions: txs, Users: users, Products: products}, nil
}

func normalizeTransactions(raw []RawTransaction, drops models.DropReport) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(raw))
	dropped, blank := 0, 0
	for _, r := range raw {
		if r.Blank {
			blank++
			continue
		}
		if isNull(r.Quantity) {
			dropped++
			continue
		}
		qty, err := coerceInt(r.Quantity)
		if err != nil || qty < 0 {
			return nil, &TypeCoercionError{Source: SourceTransactions, Row: r.Row, Field: colQuantity, Value: r.Quantity, Want: "a non-negative integer", Err: err}
		}
		date, err := ParseDate(r.Date)
		if err != nil {
			return nil, &DateParseError{Source: SourceTransactions, Row: r.Row, Value: r.Date, Err: err}
		}
		tx := models.Transaction{
			ProductID: r.ProductID,
			UserID:    r.UserID,
			Quantity:  qty,
			Date:      date,
		}
		if err := validateRecord(SourceTransactions, r.Row, tx); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	drops.Add(SourceTransactions, reasonNullQuantity, dropped)
	drops.Add(SourceTransactions, reasonBlankRow, blank)
	return out, nil
}

func normalizeUsers(raw []RawUser, drops models.DropReport) ([]models.User, error) {
	out := make([]models.User, 0, len(raw))
	seen := make(map[string]int, len(raw))
	blank := 0
	for _, r := range raw {
		if r.Blank {
			blank++
			continue
		}
		if prev, dup := seen[r.UserID]; dup && r.UserID != "" {
			return nil, &SchemaError{Source: SourceUsers, Column: colUserID,
				Detail: "duplicate " + r.UserID + " in rows " + strconv.Itoa(prev) + " and " + strconv.Itoa(r.Row)}
		}
		seen[r.UserID] = r.Row

		age, err := coerceInt(r.Age)
		if err != nil {
			return nil, &TypeCoercionError{Source: SourceUsers, Row: r.Row, Field: colAge, Value: r.Age, Want: "an integer", Err: err}
		}
		u := models.User{
			UserID: r.UserID,
			Age:    age,
			Status: models.Tier(Capitalize(r.Status)),
		}
		if err := validateRecord(SourceUsers, r.Row, u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	drops.Add(SourceUsers, reasonBlankRow, blank)
	return out, nil
}

func normalizeProducts(raw []RawProduct, drops models.DropReport) ([]models.Product, error) {
	out := make([]models.Product, 0, len(raw))
	seen := make(map[string]int, len(raw))
	blank := 0
	for _, r := range raw {
		if r.Blank {
			blank++
			continue
		}
		id := upperCase.String(r.ProductID)
		if prev, dup := seen[id]; dup {
			return nil, &SchemaError{Source: SourceProducts, Column: colCatalogProductID,
				Detail: "duplicate " + id + " in rows " + strconv.Itoa(prev) + " and " + strconv.Itoa(r.Row)}
		}
		seen[id] = r.Row

		price, err := decimal.NewFromString(r.UnitPrice)
		if err != nil {
			return nil, &TypeCoercionError{Source: SourceProducts, Row: r.Row, Field: colUnitPrice, Value: r.UnitPrice, Want: "a number", Err: err}
		}
		stock, err := coerceInt(r.WarehouseQty)
		if err != nil {
			return nil, &TypeCoercionError{Source: SourceProducts, Row: r.Row, Field: colWarehouseQty, Value: r.WarehouseQty, Want: "an integer", Err: err}
		}
		threshold, err := coerceInt(r.RestockThreshold)
		if err != nil {
			return nil, &TypeCoercionError{Source: SourceProducts, Row: r.Row, Field: colRestockThreshold, Value: r.RestockThreshold, Want: "an integer", Err: err}
		}
		p := models.Product{
			ProductID:        id,
			UnitPrice:        price,
			WarehouseQty:     stock,
			RestockThreshold: threshold,
		}
		if err := validateRecord(SourceProducts, r.Row, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	drops.Add(SourceProducts, reasonBlankRow, blank)
	return out, nil
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + lowerCase.String(s[size:])
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func isNull(s string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(s))]
}

// coerceInt accepts plain integers and integral floats such as "5.0".
func coerceInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errors.New("not an integral value")
	}
	return int(f), nil
}

func validateRecord(source string, row int, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &TypeCoercionError{
			Source: source,
			Row:    row,
			Field:  fe.Field(),
			Value:  toString(fe.Value()),
			Want:   "valid (" + fe.Tag() + " " + fe.Param() + ")",
			Err:    err,
		}
	}
	return err
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case models.Tier:
		return string(x)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
