// Package sheets implements the external catalog and ledger boundaries on
// top of the Google Sheets API. The ledger lives in one spreadsheet with a
// tab per location; each tab keys rows by (SKU, transaction type) and grows
// a column per synced date. The composite SKU map and vendor-suggestion
// table live on dedicated tabs of the same spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/infrastructure/retry"
)

const (
	// skuColumn and typeColumn are fixed; date columns start right after
	skuColumn       = 1
	typeColumn      = 2
	firstDateColumn = 3

	// headerRow is row 1; data rows start at 2
	headerRow    = 1
	firstDataRow = 2
)

// Default tab names, overridable per deployment
const (
	DefaultCompositeTab  = "Composite SKUs"
	DefaultSuggestionTab = "Vendor Suggestions"
)

// DefaultLocationTabs maps each location to its ledger tab name
func DefaultLocationTabs() map[valueobject.Location]string {
	return map[valueobject.Location]string{
		valueobject.LocationA:      "Warehouse A",
		valueobject.LocationB:      "Warehouse B",
		valueobject.LocationDirect: "Direct",
	}
}

// Config holds the spreadsheet wiring for one deployment
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CompositeTab    string
	SuggestionTab   string
	LocationTabs    map[valueobject.Location]string
}

func (c *Config) applyDefaults() {
	if c.CompositeTab == "" {
		c.CompositeTab = DefaultCompositeTab
	}
	if c.SuggestionTab == "" {
		c.SuggestionTab = DefaultSuggestionTab
	}
	if len(c.LocationTabs) == 0 {
		c.LocationTabs = DefaultLocationTabs()
	}
}

type rowKey struct {
	sku    string
	txType ledger.Type
}

// Client talks to the ledger spreadsheet. It caches header rows and row
// indexes per tab; both caches are invalidated when a lookup misses so a
// manually extended sheet is picked up on the next call.
type Client struct {
	svc      *sheets.Service
	cfg      Config
	retryCfg retry.Config
	logger   *zap.Logger

	mu      sync.Mutex
	headers map[valueobject.Location][]string
	rows    map[valueobject.Location]map[rowKey]int
}

// NewClient builds a Sheets API service from the config and wraps it in a
// ledger client
func NewClient(ctx context.Context, cfg Config, retryCfg retry.Config, logger *zap.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, retryCfg, logger), nil
}

func newClient(svc *sheets.Service, cfg Config, retryCfg retry.Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		svc:      svc,
		cfg:      cfg,
		retryCfg: retryCfg,
		logger:   logger,
		headers:  make(map[valueobject.Location][]string),
		rows:     make(map[valueobject.Location]map[rowKey]int),
	}
}

// SpreadsheetID identifies the ledger spreadsheet
func (c *Client) SpreadsheetID() string {
	return c.cfg.SpreadsheetID
}

func (c *Client) tabFor(location valueobject.Location) (string, error) {
	tab, ok := c.cfg.LocationTabs[location]
	if !ok {
		return "", fmt.Errorf("no ledger tab configured for location %s", location)
	}
	return tab, nil
}

// getValues reads a range with retry, mapping API failures into the
// extledger taxonomy
func (c *Client) getValues(ctx context.Context, rng string) ([][]interface{}, error) {
	return retry.DoValue(ctx, c.retryCfg, func() ([][]interface{}, error) {
		resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, classifyForRetry(mapAPIError(err))
		}
		return resp.Values, nil
	})
}

// updateValues writes a range with retry using raw input (no formula
// interpretation)
func (c *Client) updateValues(ctx context.Context, rng string, values [][]interface{}) error {
	return retry.Do(ctx, c.retryCfg, func() error {
		_, err := c.svc.Spreadsheets.Values.
			Update(c.cfg.SpreadsheetID, rng, &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return classifyForRetry(mapAPIError(err))
		}
		return nil
	})
}

// GetHeaderRow returns the header row for a location's ledger tab
func (c *Client) GetHeaderRow(ctx context.Context, location valueobject.Location) ([]string, error) {
	c.mu.Lock()
	if header, ok := c.headers[location]; ok {
		c.mu.Unlock()
		return header, nil
	}
	c.mu.Unlock()
	return c.refreshHeader(ctx, location)
}

func (c *Client) refreshHeader(ctx context.Context, location valueobject.Location) ([]string, error) {
	tab, err := c.tabFor(location)
	if err != nil {
		return nil, err
	}
	rows, err := c.getValues(ctx, rangeRef(tab, fmt.Sprintf("%d:%d", headerRow, headerRow)))
	if err != nil {
		return nil, fmt.Errorf("read header row for %s: %w", location, err)
	}
	header := make([]string, 0)
	if len(rows) > 0 {
		for _, cell := range rows[0] {
			header = append(header, cellString(cell))
		}
	}
	c.mu.Lock()
	c.headers[location] = header
	c.mu.Unlock()
	return header, nil
}

// FindOrCreateDateColumn returns the 1-based column index holding the date,
// appending a new header cell when the date has no column yet
func (c *Client) FindOrCreateDateColumn(ctx context.Context, location valueobject.Location, date time.Time) (int, error) {
	day := ledger.DayOf(date)

	header, err := c.GetHeaderRow(ctx, location)
	if err != nil {
		return 0, err
	}
	if col, ok := findDateColumn(header, day); ok {
		return col, nil
	}

	// Cached header may be stale; refetch once before appending
	header, err = c.refreshHeader(ctx, location)
	if err != nil {
		return 0, err
	}
	if col, ok := findDateColumn(header, day); ok {
		return col, nil
	}

	col := len(header) + 1
	if col < firstDateColumn {
		col = firstDateColumn
	}
	tab, err := c.tabFor(location)
	if err != nil {
		return 0, err
	}
	label := formatHeaderDate(day)
	if err := c.updateValues(ctx, rangeRef(tab, cellRef(col, headerRow)), [][]interface{}{{label}}); err != nil {
		return 0, fmt.Errorf("create date column %s for %s: %w", label, location, err)
	}

	c.mu.Lock()
	for len(c.headers[location]) < col {
		c.headers[location] = append(c.headers[location], "")
	}
	c.headers[location][col-1] = label
	c.mu.Unlock()

	c.logger.Info("created ledger date column",
		zap.String("location", location.String()),
		zap.String("date", label),
		zap.Int("column", col))
	return col, nil
}

func findDateColumn(header []string, day time.Time) (int, bool) {
	for i, cell := range header {
		if i+1 < firstDateColumn {
			continue
		}
		if t := parseHeaderDate(cell); !t.IsZero() && t.Equal(day) {
			return i + 1, true
		}
	}
	return 0, false
}

// rowIndexFor resolves the 1-based sheet row for (sku, type), refreshing the
// row cache once on a miss
func (c *Client) rowIndexFor(ctx context.Context, location valueobject.Location, canonicalSKU string, txType ledger.Type) (int, error) {
	key := rowKey{sku: canonicalSKU, txType: txType}

	c.mu.Lock()
	if idx, ok := c.rows[location][key]; ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	if err := c.refreshRows(ctx, location); err != nil {
		return 0, err
	}

	c.mu.Lock()
	idx, ok := c.rows[location][key]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s (%s) in %s", extledger.ErrSKUNotFound, canonicalSKU, txType, location)
	}
	return idx, nil
}

func (c *Client) refreshRows(ctx context.Context, location valueobject.Location) error {
	tab, err := c.tabFor(location)
	if err != nil {
		return err
	}
	rng := rangeRef(tab, fmt.Sprintf("%s%d:%s", columnLetters(skuColumn), firstDataRow, columnLetters(typeColumn)))
	rows, err := c.getValues(ctx, rng)
	if err != nil {
		return fmt.Errorf("read key columns for %s: %w", location, err)
	}

	index := make(map[rowKey]int, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		s := sku.Canonical(cellString(row[0]))
		t := ledger.Type(cellString(row[1]))
		if s == "" || !t.IsValid() {
			continue
		}
		index[rowKey{sku: s, txType: t}] = firstDataRow + i
	}

	c.mu.Lock()
	c.rows[location] = index
	c.mu.Unlock()
	return nil
}

// ReadCell returns the quantity stored for (sku, type) in the given column
func (c *Client) ReadCell(ctx context.Context, location valueobject.Location, rawSKU string, txType ledger.Type, column int) (int64, error) {
	row, err := c.rowIndexFor(ctx, location, sku.Canonical(rawSKU), txType)
	if err != nil {
		return 0, err
	}
	tab, err := c.tabFor(location)
	if err != nil {
		return 0, err
	}
	values, err := c.getValues(ctx, rangeRef(tab, cellRef(column, row)))
	if err != nil {
		return 0, fmt.Errorf("read cell for %s: %w", rawSKU, err)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return 0, nil
	}
	return cellQuantity(values[0][0]), nil
}

// WriteCell overwrites the quantity for (sku, type) in the given column
func (c *Client) WriteCell(ctx context.Context, location valueobject.Location, rawSKU string, txType ledger.Type, column int, value int64) error {
	row, err := c.rowIndexFor(ctx, location, sku.Canonical(rawSKU), txType)
	if err != nil {
		return err
	}
	tab, err := c.tabFor(location)
	if err != nil {
		return err
	}
	if err := c.updateValues(ctx, rangeRef(tab, cellRef(column, row)), [][]interface{}{{value}}); err != nil {
		return fmt.Errorf("write cell for %s: %w", rawSKU, err)
	}
	return nil
}

// GetExistingValuesForDate returns the current ledger values for the given
// SKUs on the date. SKUs without rows are omitted; a date without a column
// yields an empty map.
func (c *Client) GetExistingValuesForDate(ctx context.Context, location valueobject.Location, date time.Time, skus []string) (map[string]extledger.CellValue, error) {
	out := make(map[string]extledger.CellValue, len(skus))

	header, err := c.refreshHeader(ctx, location)
	if err != nil {
		return nil, err
	}
	col, ok := findDateColumn(header, ledger.DayOf(date))
	if !ok {
		return out, nil
	}

	if err := c.refreshRows(ctx, location); err != nil {
		return nil, err
	}
	tab, err := c.tabFor(location)
	if err != nil {
		return nil, err
	}
	letters := columnLetters(col)
	values, err := c.getValues(ctx, rangeRef(tab, fmt.Sprintf("%s%d:%s", letters, firstDataRow, letters)))
	if err != nil {
		return nil, fmt.Errorf("read date column for %s: %w", location, err)
	}

	wanted := make(map[string]bool, len(skus))
	for _, s := range skus {
		wanted[sku.Canonical(s)] = true
	}

	c.mu.Lock()
	index := c.rows[location]
	c.mu.Unlock()

	for key, row := range index {
		if !wanted[key.sku] {
			continue
		}
		var q int64
		if i := row - firstDataRow; i >= 0 && i < len(values) && len(values[i]) > 0 {
			q = cellQuantity(values[i][0])
		}
		cv := out[key.sku]
		switch key.txType {
		case ledger.TypeSales:
			cv.Sales = q
		case ledger.TypePurchase:
			cv.Purchase = q
		case ledger.TypeReturn:
			cv.Return = q
		}
		out[key.sku] = cv
	}
	return out, nil
}

var _ extledger.Ledger = (*Client)(nil)
