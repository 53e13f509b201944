package pipeline

import (
	"errors"
	"fmt"
	"time"
)

type Stage string

const (
	StageLoad      Stage = "load"
	StageNormalize Stage = "normalize"
	StageAggregate Stage = "aggregate"
	StageTrend     Stage = "trend"
)

var (
	ErrSchema                  = errors.New("schema mismatch")
	ErrDateParse               = errors.New("date parse failed")
	ErrTypeCoercion            = errors.New("type coercion failed")
	ErrMissingProductReference = errors.New("missing product reference")
	ErrUnexpectedMonth         = errors.New("unexpected month")
	ErrInsufficientData        = errors.New("insufficient data")
)

// Diagnostic is implemented by every pipeline error. Stage and Record identify
// where the run was aborted.
type Diagnostic interface {
	error
	Stage() Stage
	Record() string
}

type SchemaError struct {
	Source string
	Column string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: column %q: %s", e.Source, e.Column, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Detail)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
func (e *SchemaError) Stage() Stage         { return StageLoad }
func (e *SchemaError) Record() string       { return e.Source }

type DateParseError struct {
	Source string
	Row    int
	Value  string
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("%s row %d: cannot parse date %q as day/month/year", e.Source, e.Row, e.Value)
}

func (e *DateParseError) Is(target error) bool { return target == ErrDateParse }
func (e *DateParseError) Unwrap() error        { return e.Err }
func (e *DateParseError) Stage() Stage         { return StageNormalize }
func (e *DateParseError) Record() string       { return fmt.Sprintf("%s row %d", e.Source, e.Row) }

type TypeCoercionError struct {
	Source string
	Row    int
	Field  string
	Value  string
	Want   string
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("%s row %d: field %s value %q is not %s", e.Source, e.Row, e.Field, e.Value, e.Want)
}

func (e *TypeCoercionError) Is(target error) bool { return target == ErrTypeCoercion }
func (e *TypeCoercionError) Unwrap() error        { return e.Err }
func (e *TypeCoercionError) Stage() Stage         { return StageNormalize }
func (e *TypeCoercionError) Record() string       { return fmt.Sprintf("%s row %d", e.Source, e.Row) }

type MissingProductReferenceError struct {
	ProductIDs []string
}

func (e *MissingProductReferenceError) Error() string {
	return fmt.Sprintf("sold products missing from catalog: %v", e.ProductIDs)
}

func (e *MissingProductReferenceError) Is(target error) bool {
	return target == ErrMissingProductReference
}
func (e *MissingProductReferenceError) Stage() Stage { return StageAggregate }
func (e *MissingProductReferenceError) Record() string {
	return fmt.Sprintf("Product_ID %v", e.ProductIDs)
}

type UnexpectedMonthError struct {
	ProductID string
	Date      time.Time
	Window    MonthWindow
}

func (e *UnexpectedMonthError) Error() string {
	return fmt.Sprintf("transaction for %s on %s falls outside month window %s",
		e.ProductID, e.Date.Format("02/01/2006"), e.Window)
}

func (e *UnexpectedMonthError) Is(target error) bool { return target == ErrUnexpectedMonth }
func (e *UnexpectedMonthError) Stage() Stage         { return StageAggregate }
func (e *UnexpectedMonthError) Record() string {
	return fmt.Sprintf("Product_ID %s Date %s", e.ProductID, e.Date.Format("02/01/2006"))
}

type InsufficientDataError struct {
	Series string
	N      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("trend for %s needs at least 2 points, got %d", e.Series, e.N)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }
func (e *InsufficientDataError) Stage() Stage         { return StageTrend }
func (e *InsufficientDataError) Record() string       { return e.Series }
