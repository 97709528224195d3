package publicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tesoro-project/tesoro/pkg/cache"
	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/version"
)

// APIClient is a utility for interacting with the treasury's API server.
type APIClient struct {
	BaseURI        string
	DefaultHeaders map[string]string

	Client *http.Client
}

// NewAPIClient returns a new client for a treasury API server.
func NewAPIClient(baseURI string) *APIClient {
	return &APIClient{
		BaseURI:        baseURI,
		DefaultHeaders: map[string]string{},

		Client: &http.Client{
			Timeout: 300 * time.Second, //nolint:gomnd
		},
	}
}

// Alive calls the server's liveness check.
func (apiClient *APIClient) Alive(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiClient.BaseURI+"/livez", nil)
	if err != nil {
		return false, nil
	}
	res, err := apiClient.Client.Do(req)
	if err != nil {
		return false, nil
	}
	defer drainAndClose(ctx, res.Body)

	return res.StatusCode == http.StatusOK, nil
}

func (apiClient *APIClient) Version(ctx context.Context) (*version.BuildVersionInfo, error) {
	var res VersionResponse
	if err := apiClient.get(ctx, "/version", nil, &res); err != nil {
		return nil, err
	}
	return res.VersionInfo, nil
}

func (apiClient *APIClient) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	var user model.User
	if err := apiClient.post(ctx, "/api/v1/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (apiClient *APIClient) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := apiClient.get(ctx, "/api/v1/user", url.Values{"id": {id}}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (apiClient *APIClient) ListUsers(ctx context.Context) ([]*model.User, error) {
	var res ListUsersResponse
	if err := apiClient.get(ctx, "/api/v1/users", nil, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

func (apiClient *APIClient) UpdateUser(ctx context.Context, req UpdateUserRequest) (*model.User, error) {
	var user model.User
	if err := apiClient.post(ctx, "/api/v1/users/update", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (apiClient *APIClient) DeleteUser(ctx context.Context, id string) error {
	return apiClient.post(ctx, "/api/v1/users/delete", DeleteUserRequest{ID: id}, nil)
}

func (apiClient *APIClient) CreateAccount(ctx context.Context, req CreateAccountRequest) (*model.Account, error) {
	var account model.Account
	if err := apiClient.post(ctx, "/api/v1/accounts", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (apiClient *APIClient) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	if err := apiClient.get(ctx, "/api/v1/account", url.Values{"id": {id}}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (apiClient *APIClient) ListAccounts(ctx context.Context, ownerID string) ([]*model.Account, error) {
	params := url.Values{}
	if ownerID != "" {
		params.Set("owner", ownerID)
	}
	var res ListAccountsResponse
	if err := apiClient.get(ctx, "/api/v1/accounts", params, &res); err != nil {
		return nil, err
	}
	return res.Accounts, nil
}

func (apiClient *APIClient) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*model.Transaction, error) {
	var entry model.Transaction
	if err := apiClient.post(ctx, "/api/v1/transactions", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (apiClient *APIClient) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	var entry model.Transaction
	if err := apiClient.get(ctx, "/api/v1/transaction", url.Values{"id": {id}}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (apiClient *APIClient) ListTransactions(ctx context.Context, query model.TransactionQuery) (*ListTransactionsResponse, error) {
	params := url.Values{}
	if query.AccountID != "" {
		params.Set("account", query.AccountID)
	}
	if query.Kind != "" {
		params.Set("kind", string(query.Kind))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}
	if query.SortBy != "" {
		params.Set("sort_by", query.SortBy)
	}
	if query.SortReverse {
		params.Set("sort_reverse", "true")
	}

	var res ListTransactionsResponse
	if err := apiClient.get(ctx, "/api/v1/transactions", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (apiClient *APIClient) CacheStats(ctx context.Context) (*cache.Stats, error) {
	var res CacheStatsResponse
	if err := apiClient.get(ctx, "/api/v1/cache/stats", nil, &res); err != nil {
		return nil, err
	}
	return &res.Stats, nil
}

func (apiClient *APIClient) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	var res InvalidateCacheResponse
	if err := apiClient.post(ctx, "/api/v1/cache/invalidate", InvalidateCacheRequest{Pattern: pattern}, &res); err != nil {
		return 0, err
	}
	return res.Removed, nil
}

func (apiClient *APIClient) get(ctx context.Context, path string, params url.Values, resData any) error {
	addr := apiClient.BaseURI + path
	if len(params) > 0 {
		addr += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return errors.Wrap(err, "creating Get request")
	}
	return apiClient.do(req, resData)
}

func (apiClient *APIClient) post(ctx context.Context, path string, reqData, resData any) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(reqData); err != nil {
		return errors.Wrap(err, "encoding request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiClient.BaseURI+path, &body)
	if err != nil {
		return errors.Wrap(err, "creating Post request")
	}
	req.Header.Set("Content-Type", "application/json")
	return apiClient.do(req, resData)
}

func (apiClient *APIClient) do(req *http.Request, resData any) error {
	for header, value := range apiClient.DefaultHeaders {
		req.Header.Set(header, value)
	}

	res, err := apiClient.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer drainAndClose(req.Context(), res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(res.Body)
		return errors.Errorf("server error %s: %s: %s",
			res.Status, req.URL.Path, strings.TrimSpace(string(payload)))
	}
	if resData == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(resData), "decoding response body")
}

func drainAndClose(ctx context.Context, body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("failed to close response body")
	}
}
