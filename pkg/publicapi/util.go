package publicapi

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tesoro-project/tesoro/pkg/treasurydb"
)

func httpError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	log.Ctx(r.Context()).Error().Err(err).Send()
	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}

// decodeRequest strictly decodes a JSON request body; unknown fields are
// an error rather than silently dropped.
func decodeRequest(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return errors.Wrap(err, "decoding request body")
	}
	return nil
}

// storeErrorStatus maps store errors onto HTTP status codes.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, treasurydb.ErrUserNotFound),
		errors.Is(err, treasurydb.ErrAccountNotFound),
		errors.Is(err, treasurydb.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, treasurydb.ErrEmailTaken),
		errors.Is(err, treasurydb.ErrUserHasAccounts):
		return http.StatusConflict
	case errors.Is(err, treasurydb.ErrInsufficientFunds),
		errors.Is(err, treasurydb.ErrCurrencyMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
