package sheets

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the header format for date columns
const dateLayout = "2006-01-02"

// columnLetters converts a 1-based column index to A1 letters (1 -> A,
// 26 -> Z, 27 -> AA)
func columnLetters(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// cellRef builds an A1 cell reference from 1-based column and row
func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetters(col), row)
}

// rangeRef builds a fully qualified A1 range. Tab names are always quoted so
// names with spaces stay valid.
func rangeRef(tab, a1 string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), a1)
}

// parseHeaderDate parses a header cell as a date column label. Returns the
// zero time when the cell is not a date.
func parseHeaderDate(cell string) time.Time {
	t, err := time.Parse(dateLayout, strings.TrimSpace(cell))
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatHeaderDate renders a date as a header cell label, truncated to the
// UTC day
func formatHeaderDate(date time.Time) string {
	return date.UTC().Format(dateLayout)
}

// cellString renders an API cell value as a trimmed string
func cellString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// cellQuantity parses an API cell value as a quantity. Empty and
// unparseable cells read as zero.
func cellQuantity(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		var q int64
		if _, err := fmt.Sscanf(s, "%d", &q); err != nil {
			return 0
		}
		return q
	}
	return 0
}
