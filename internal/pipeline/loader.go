package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	SourceTransactions = "transactions"
	SourceUsers        = "users"
	SourceProducts     = "products"
)

const (
	colProductID        = "Product_ID"
	colUserID           = "User_ID"
	colQuantity         = "Quantity"
	colDate             = "Date"
	colAge              = "Age"
	colStatus           = "Status"
	colCatalogProductID = "PRODUCT_ID"
	colUnitPrice        = "HARGA_SATUAN"
	colWarehouseQty     = "JUMLAH_DIGUDANG"
	colRestockThreshold = "HARUS_RESTOCK_BILA_JUMLAH_GUDANG_TERSISA"
)

// Sources holds the file paths of the three input tables.
type Sources struct {
	Transactions string
	Users        string
	Products     string
}

func (s Sources) Paths() []string {
	return []string{s.Transactions, s.Users, s.Products}
}

// Raw records keep every field as the text read from the file. Row is the
// 1-based data row (the header is not counted). Blank marks a record whose
// fields are all empty; it is dropped and tallied during normalization.
type RawTransaction struct {
	Row       int
	ProductID string
	UserID    string
	Quantity  string
	Date      string
	Blank     bool
}

type RawUser struct {
	Row    int
	UserID string
	Age    string
	Status string
	Blank  bool
}

type RawProduct struct {
	Row              int
	ProductID        string
	UnitPrice        string
	WarehouseQty     string
	RestockThreshold string
	Blank            bool
}

type RawTables struct {
	Transactions []RawTransaction
	Users        []RawUser
	Products     []RawProduct
}

// LoadSources reads the three files. They are independent, so they are read
// concurrently; the first failure cancels the remaining reads.
func LoadSources(ctx context.Context, src Sources) (*RawTables, error) {
	var raw RawTables
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := loadFile(ctx, src.Transactions, ReadTransactions)
		raw.Transactions = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadFile(ctx, src.Users, ReadUsers)
		raw.Users = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadFile(ctx, src.Products, ReadProducts)
		raw.Products = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &raw, nil
}

func loadFile[T any](ctx context.Context, path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadTransactions parses the semicolon separated transaction table.
func ReadTransactions(r io.Reader) ([]RawTransaction, error) {
	t, err := readTable(r, SourceTransactions, ';', colProductID, colUserID, colQuantity, colDate)
	if err != nil {
		return nil, err
	}
	out := make([]RawTransaction, 0, len(t.rows))
	for i := range t.rows {
		out = append(out, RawTransaction{
			Row:       i + 1,
			Blank:     t.blank(i),
			ProductID: t.cell(i, colProductID),
			UserID:    t.cell(i, colUserID),
			Quantity:  t.cell(i, colQuantity),
			Date:      t.cell(i, colDate),
		})
	}
	return out, nil
}

// ReadUsers parses the comma separated user table.
func ReadUsers(r io.Reader) ([]RawUser, error) {
	t, err := readTable(r, SourceUsers, ',', colUserID, colAge, colStatus)
	if err != nil {
		return nil, err
	}
	out := make([]RawUser, 0, len(t.rows))
	for i := range t.rows {
		out = append(out, RawUser{
			Row:    i + 1,
			Blank:  t.blank(i),
			UserID: t.cell(i, colUserID),
			Age:    t.cell(i, colAge),
			Status: t.cell(i, colStatus),
		})
	}
	return out, nil
}

// ReadProducts parses the semicolon separated product catalog.
func ReadProducts(r io.Reader) ([]RawProduct, error) {
	t, err := readTable(r, SourceProducts, ';', colCatalogProductID, colUnitPrice, colWarehouseQty, colRestockThreshold)
	if err != nil {
		return nil, err
	}
	out := make([]RawProduct, 0, len(t.rows))
	for i := range t.rows {
		out = append(out, RawProduct{
			Row:              i + 1,
			Blank:            t.blank(i),
			ProductID:        t.cell(i, colCatalogProductID),
			UnitPrice:        t.cell(i, colUnitPrice),
			WarehouseQty:     t.cell(i, colWarehouseQty),
			RestockThreshold: t.cell(i, colRestockThreshold),
		})
	}
	return out, nil
}

type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) blank(row int) bool {
	return isBlank(t.rows[row])
}

func (t *table) cell(row int, column string) string {
	idx := t.columns[strings.ToLower(column)]
	record := t.rows[row]
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func readTable(r io.Reader, source string, delimiter rune, required ...string) (*table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Source: source, Detail: "file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("%s header: %w", source, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}
	for _, name := range required {
		if _, ok := columns[strings.ToLower(name)]; !ok {
			return nil, &SchemaError{Source: source, Column: name, Detail: "required column is missing"}
		}
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", source, len(rows)+1, err)
		}
		rows = append(rows, record)
	}

	return &table{columns: columns, rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
