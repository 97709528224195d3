package publicapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/cache/memoize"
	"github.com/tesoro-project/tesoro/pkg/model"
)

const (
	transactionKeyPrefix = "tx:"
	txListsKeyPattern    = "txns:"
	transactionListTTL   = 30 * time.Second
)

// transactions serves POST to record a ledger entry and GET to page
// through the ledger.
func (apiServer *APIServer) transactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		apiServer.createTransaction(w, r)
	case http.MethodGet:
		apiServer.listTransactions(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (apiServer *APIServer) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	entry, err := model.NewTransaction(
		req.AccountID, req.CounterAccountID, req.Kind, req.AmountMinor, req.Reference)
	if err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := apiServer.Store.AddTransaction(r.Context(), entry); err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	// balances changed: drop the touched accounts, every cached account
	// list, and every cached ledger page
	apiServer.Cache.InvalidatePattern(accountKeyPrefix + entry.AccountID)
	if entry.CounterAccountID != "" {
		apiServer.Cache.InvalidatePattern(accountKeyPrefix + entry.CounterAccountID)
	}
	apiServer.Cache.InvalidatePattern(accountListsKeyPattern)
	apiServer.Cache.InvalidatePattern(txListsKeyPattern)

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, entry)
}

func parseTransactionQuery(r *http.Request) (model.TransactionQuery, error) {
	params := r.URL.Query()
	query := model.TransactionQuery{
		AccountID:   params.Get("account"),
		Kind:        model.TransactionKind(params.Get("kind")),
		SortBy:      params.Get("sort_by"),
		SortReverse: params.Get("sort_reverse") == "true",
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query, errors.Errorf("invalid limit %q", raw)
		}
		query.Limit = limit
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, errors.Errorf("invalid offset %q", raw)
		}
		query.Offset = offset
	}
	if query.Kind != "" && !model.IsValidTransactionKind(query.Kind) {
		return query, errors.Errorf("invalid kind %q", query.Kind)
	}
	return query, nil
}

func transactionListKey(query model.TransactionQuery) string {
	return memoize.KeyFields(txListsKeyPattern+"account:"+query.AccountID, map[string]any{
		"kind":         string(query.Kind),
		"limit":        query.Limit,
		"offset":       query.Offset,
		"sort_by":      query.SortBy,
		"sort_reverse": query.SortReverse,
	})
}

// fetchTransactionPage is the compute half of the list memoizer.
func (apiServer *APIServer) fetchTransactionPage(
	ctx context.Context, query model.TransactionQuery) (any, error) {
	transactions, err := apiServer.Store.ListTransactions(ctx, query)
	if err != nil {
		return nil, err
	}
	total, err := apiServer.Store.CountTransactions(ctx, query)
	if err != nil {
		return nil, err
	}
	return ListTransactionsResponse{Transactions: transactions, Total: total}, nil
}

func (apiServer *APIServer) listTransactions(w http.ResponseWriter, r *http.Request) {
	query, err := parseTransactionQuery(r)
	if err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	response, err := apiServer.txLists.Call(r.Context(), query)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}
	writeJSON(w, r, response)
}

func (apiServer *APIServer) transaction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpError(w, r, errors.New("id parameter is required"), http.StatusBadRequest)
		return
	}

	// ledger entries are immutable so these never need invalidating
	key := transactionKeyPrefix + id
	if cached, found := apiServer.Cache.Get(key); found {
		writeJSON(w, r, cached)
		return
	}

	entry, err := apiServer.Store.GetTransaction(r.Context(), id)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.Set(key, entry)
	writeJSON(w, r, entry)
}
