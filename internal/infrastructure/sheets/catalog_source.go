package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/retry"
)

// CompositeSource reads the composite SKU mapping tab. Row format, after a
// header row:
//
//	SKU | Kind (PACK or COMBO) | PackSize | Components (comma separated) | Vendor Hint
//
// Malformed rows are skipped with a warning so one bad edit cannot take the
// whole map offline.
type CompositeSource struct {
	client *Client
	logger *zap.Logger
}

// NewCompositeSource creates the raw tab reader. Wrap it in a caching
// decorator before handing it to the expander.
func NewCompositeSource(client *Client, logger *zap.Logger) *CompositeSource {
	return &CompositeSource{client: client, logger: logger}
}

// GetCompositeMap fetches and parses the composite mapping tab
func (s *CompositeSource) GetCompositeMap(ctx context.Context) (*sku.CompositeMap, error) {
	rng := rangeRef(s.client.cfg.CompositeTab, fmt.Sprintf("A%d:E", firstDataRow))
	rows, err := retry.DoValue(ctx, s.client.retryCfg, func() ([][]interface{}, error) {
		resp, err := s.client.svc.Spreadsheets.Values.Get(s.client.cfg.SpreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, classifyForRetry(mapAPIError(err))
		}
		return resp.Values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read composite map tab: %w", err)
	}

	m, skipped := parseCompositeRows(rows)
	for _, reason := range skipped {
		s.logger.Warn("skipping malformed composite map row", zap.String("reason", reason))
	}
	return m, nil
}

// Invalidate is a no-op; the raw source holds no state
func (s *CompositeSource) Invalidate() {}

var _ sku.CompositeSource = (*CompositeSource)(nil)

// parseCompositeRows builds a composite map from raw tab rows, returning
// skip reasons for rows it could not use
func parseCompositeRows(rows [][]interface{}) (*sku.CompositeMap, []string) {
	m := sku.NewCompositeMap()
	var skipped []string

	for i, row := range rows {
		rowNum := firstDataRow + i
		if len(row) < 2 {
			continue
		}
		s := sku.Canonical(cellString(row[0]))
		kind := strings.ToUpper(cellString(row[1]))
		if s == "" {
			continue
		}

		switch kind {
		case string(sku.KindPack):
			if len(row) < 3 {
				skipped = append(skipped, fmt.Sprintf("row %d: pack %s has no pack size", rowNum, s))
				continue
			}
			size := cellQuantity(row[2])
			if size <= 0 {
				skipped = append(skipped, fmt.Sprintf("row %d: pack %s has non-positive pack size", rowNum, s))
				continue
			}
			def := sku.PackDef{PackSize: size}
			if len(row) > 4 {
				def.VendorHint = cellString(row[4])
			}
			m.Packs[s] = def

		case string(sku.KindCombo):
			if len(row) < 4 {
				skipped = append(skipped, fmt.Sprintf("row %d: combo %s has no components", rowNum, s))
				continue
			}
			var components []string
			for _, part := range strings.Split(cellString(row[3]), ",") {
				if c := sku.Canonical(part); c != "" {
					components = append(components, c)
				}
			}
			if len(components) == 0 {
				skipped = append(skipped, fmt.Sprintf("row %d: combo %s has no components", rowNum, s))
				continue
			}
			def := sku.ComboDef{Components: components}
			if len(row) > 4 {
				def.VendorHint = cellString(row[4])
			}
			m.Combos[s] = def

		default:
			skipped = append(skipped, fmt.Sprintf("row %d: %s has unknown kind %q", rowNum, s, kind))
		}
	}
	return m, skipped
}

// SuggestionSource reads the vendor-suggestion tab. Row format, after a
// header row:
//
//	SKU | Vendor Name
type SuggestionSource struct {
	client *Client
	logger *zap.Logger
}

// NewSuggestionSource creates the raw tab reader. Wrap it in a caching
// decorator before handing it to the vendor resolver.
func NewSuggestionSource(client *Client, logger *zap.Logger) *SuggestionSource {
	return &SuggestionSource{client: client, logger: logger}
}

// GetVendorSuggestions fetches the suggestion table keyed by canonical SKU
func (s *SuggestionSource) GetVendorSuggestions(ctx context.Context) (map[string]string, error) {
	rng := rangeRef(s.client.cfg.SuggestionTab, fmt.Sprintf("A%d:B", firstDataRow))
	rows, err := retry.DoValue(ctx, s.client.retryCfg, func() ([][]interface{}, error) {
		resp, err := s.client.svc.Spreadsheets.Values.Get(s.client.cfg.SpreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, classifyForRetry(mapAPIError(err))
		}
		return resp.Values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read vendor suggestion tab: %w", err)
	}
	return parseSuggestionRows(rows), nil
}

// Invalidate is a no-op; the raw source holds no state
func (s *SuggestionSource) Invalidate() {}

var _ vendor.SuggestionSource = (*SuggestionSource)(nil)

func parseSuggestionRows(rows [][]interface{}) map[string]string {
	table := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		s := sku.Canonical(cellString(row[0]))
		name := cellString(row[1])
		if s == "" || name == "" {
			continue
		}
		table[s] = name
	}
	return table
}
