package sheets

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/stocksync/backend/internal/domain/extledger"
)

func TestColumnLetters(t *testing.T) {
	cases := map[int]string{
		1:   "A",
		2:   "B",
		26:  "Z",
		27:  "AA",
		28:  "AB",
		52:  "AZ",
		53:  "BA",
		702: "ZZ",
		703: "AAA",
	}
	for col, want := range cases {
		assert.Equal(t, want, columnLetters(col), "column %d", col)
	}
	assert.Equal(t, "", columnLetters(0))
}

func TestCellRef(t *testing.T) {
	assert.Equal(t, "C1", cellRef(3, 1))
	assert.Equal(t, "AA42", cellRef(27, 42))
}

func TestRangeRefQuotesTabNames(t *testing.T) {
	assert.Equal(t, "'Warehouse A'!C2:C", rangeRef("Warehouse A", "C2:C"))
	assert.Equal(t, "'It''s here'!A1", rangeRef("It's here", "A1"))
}

func TestParseHeaderDate(t *testing.T) {
	got := parseHeaderDate(" 2026-08-28 ")
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), got)

	assert.True(t, parseHeaderDate("SKU").IsZero())
	assert.True(t, parseHeaderDate("").IsZero())
	assert.True(t, parseHeaderDate("28/08/2026").IsZero())
}

func TestFindDateColumn(t *testing.T) {
	header := []string{"SKU", "Type", "2026-08-27", "2026-08-28"}
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	col, ok := findDateColumn(header, day)
	require.True(t, ok)
	assert.Equal(t, 4, col)

	_, ok = findDateColumn(header, day.AddDate(0, 0, 1))
	assert.False(t, ok)

	// A date-shaped label in the key columns must not be matched
	_, ok = findDateColumn([]string{"2026-08-28", "Type"}, day)
	assert.False(t, ok)
}

func TestCellQuantity(t *testing.T) {
	assert.Equal(t, int64(7), cellQuantity("7"))
	assert.Equal(t, int64(7), cellQuantity(float64(7)))
	assert.Equal(t, int64(0), cellQuantity(""))
	assert.Equal(t, int64(0), cellQuantity("n/a"))
	assert.Equal(t, int64(-3), cellQuantity(" -3 "))
}

func TestMapAPIErrorPermissionDenied(t *testing.T) {
	err := mapAPIError(&googleapi.Error{Code: http.StatusForbidden, Message: "The caller does not have permission"})
	assert.ErrorIs(t, err, extledger.ErrPermissionDenied)
}

func TestMapAPIErrorTransient(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		err := mapAPIError(&googleapi.Error{Code: code})
		assert.ErrorIs(t, err, extledger.ErrUnavailable, "code %d", code)
	}
}

func TestMapAPIErrorClientErrorIsNotTransient(t *testing.T) {
	err := mapAPIError(&googleapi.Error{Code: http.StatusBadRequest, Message: "bad range"})
	assert.NotErrorIs(t, err, extledger.ErrUnavailable)
	assert.NotErrorIs(t, err, extledger.ErrPermissionDenied)
}

func TestMapAPIErrorWrapsNetworkFailure(t *testing.T) {
	err := mapAPIError(errors.New("connection reset"))
	assert.ErrorIs(t, err, extledger.ErrUnavailable)
}

func TestParseCompositeRows(t *testing.T) {
	rows := [][]interface{}{
		{"pk-p100", "PACK", "5", "", "Acme"},
		{"CB-C200", "combo", "", "s1, s2 ,S3", "Globex"},
		{"PK-BAD", "PACK", "0"},
		{"CB-EMPTY", "COMBO", "", " , "},
		{"X9", "WIDGET"},
		{"", "PACK", "4"},
	}

	m, skipped := parseCompositeRows(rows)

	require.Contains(t, m.Packs, "PK-P100")
	assert.Equal(t, int64(5), m.Packs["PK-P100"].PackSize)
	assert.Equal(t, "Acme", m.Packs["PK-P100"].VendorHint)

	require.Contains(t, m.Combos, "CB-C200")
	assert.Equal(t, []string{"S1", "S2", "S3"}, m.Combos["CB-C200"].Components)
	assert.Equal(t, "Globex", m.Combos["CB-C200"].VendorHint)

	assert.Len(t, m.Packs, 1)
	assert.Len(t, m.Combos, 1)
	assert.Len(t, skipped, 3)
}

func TestParseSuggestionRows(t *testing.T) {
	rows := [][]interface{}{
		{"s1", "Acme"},
		{"S2", "  Globex  "},
		{"S3"},
		{"", "Nobody"},
		{"S4", ""},
	}

	table := parseSuggestionRows(rows)
	assert.Equal(t, map[string]string{"S1": "Acme", "S2": "Globex"}, table)
}
