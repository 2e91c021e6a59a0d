package sheets

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/infrastructure/retry"
)

// mapAPIError translates a Sheets API failure into the extledger error
// taxonomy. 403 means the spreadsheet was not shared with the service
// account; rate limits and server errors are transient.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusForbidden || gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w (spreadsheet access returned %d: %s)", extledger.ErrPermissionDenied, gerr.Code, gerr.Message)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return fmt.Errorf("%w (api returned %d: %s)", extledger.ErrUnavailable, gerr.Code, gerr.Message)
		}
		return fmt.Errorf("sheets api error %d: %s", gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%w: %v", extledger.ErrUnavailable, err)
}

// classifyForRetry marks non-transient ledger errors as permanent so the
// retry loop short-circuits instead of burning attempts
func classifyForRetry(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, extledger.ErrPermissionDenied) || errors.Is(err, extledger.ErrSKUNotFound) {
		return retry.Permanent(err)
	}
	if errors.Is(err, extledger.ErrUnavailable) {
		return err
	}
	return retry.Permanent(err)
}
