package publicapi

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/model"
)

const (
	accountKeyPrefix       = "account:"
	accountListsKeyPattern = "accounts:owner:"
)

// accounts serves POST to open an account and GET to list them,
// optionally filtered by owner.
func (apiServer *APIServer) accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		apiServer.createAccount(w, r)
	case http.MethodGet:
		apiServer.listAccounts(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (apiServer *APIServer) createAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	account, err := model.NewAccount(req.OwnerID, req.Name, req.Currency)
	if err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := apiServer.Store.CreateAccount(r.Context(), account); err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.InvalidatePattern(accountListsKeyPattern)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, account)
}

func (apiServer *APIServer) listAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")

	key := accountListsKeyPattern + ownerID
	if cached, found := apiServer.Cache.Get(key); found {
		writeJSON(w, r, cached)
		return
	}

	accounts, err := apiServer.Store.ListAccounts(r.Context(), ownerID)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	response := ListAccountsResponse{Accounts: accounts}
	apiServer.Cache.Set(key, response)
	writeJSON(w, r, response)
}

func (apiServer *APIServer) account(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpError(w, r, errors.New("id parameter is required"), http.StatusBadRequest)
		return
	}

	key := accountKeyPrefix + id
	if cached, found := apiServer.Cache.Get(key); found {
		writeJSON(w, r, cached)
		return
	}

	account, err := apiServer.Store.GetAccount(r.Context(), id)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.Set(key, account)
	writeJSON(w, r, account)
}
