package publicapi

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/model"
)

const (
	userKeyPrefix   = "user:"
	usersListKey    = "users:all"
	usersKeyPattern = "users:"
)

// users serves POST to create a user and GET to list them.
func (apiServer *APIServer) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		apiServer.createUser(w, r)
	case http.MethodGet:
		apiServer.listUsers(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (apiServer *APIServer) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	user, err := model.NewUser(req.Name, req.Email, req.Role)
	if err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := apiServer.Store.CreateUser(r.Context(), user); err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.InvalidatePattern(usersKeyPattern)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, user)
}

func (apiServer *APIServer) listUsers(w http.ResponseWriter, r *http.Request) {
	if cached, found := apiServer.Cache.Get(usersListKey); found {
		writeJSON(w, r, cached)
		return
	}

	users, err := apiServer.Store.ListUsers(r.Context())
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	response := ListUsersResponse{Users: users}
	apiServer.Cache.Set(usersListKey, response)
	writeJSON(w, r, response)
}

func (apiServer *APIServer) user(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpError(w, r, errors.New("id parameter is required"), http.StatusBadRequest)
		return
	}

	key := userKeyPrefix + id
	if cached, found := apiServer.Cache.Get(key); found {
		writeJSON(w, r, cached)
		return
	}

	user, err := apiServer.Store.GetUser(r.Context(), id)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.Set(key, user)
	writeJSON(w, r, user)
}

func (apiServer *APIServer) updateUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req UpdateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}
	// run the same field validation creates get, then keep the caller's id
	user, err := model.NewUser(req.Name, req.Email, req.Role)
	if err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}
	user.ID = req.ID

	if err := apiServer.Store.UpdateUser(r.Context(), user); err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	// the store preserves created_at, so respond with its record rather
	// than echoing the request
	updated, err := apiServer.Store.GetUser(r.Context(), req.ID)
	if err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.InvalidatePattern(userKeyPrefix + req.ID)
	apiServer.Cache.InvalidatePattern(usersKeyPattern)
	writeJSON(w, r, updated)
}

func (apiServer *APIServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req DeleteUserRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := apiServer.Store.DeleteUser(r.Context(), req.ID); err != nil {
		httpError(w, r, err, storeErrorStatus(err))
		return
	}

	apiServer.Cache.InvalidatePattern(userKeyPrefix + req.ID)
	apiServer.Cache.InvalidatePattern(usersKeyPattern)
	w.WriteHeader(http.StatusNoContent)
}
