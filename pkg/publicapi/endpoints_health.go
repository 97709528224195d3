package publicapi

import (
	"net/http"

	"github.com/tesoro-project/tesoro/pkg/version"
)

func (apiServer *APIServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, HealthzResponse{Status: "OK"})
}

func (apiServer *APIServer) livez(w http.ResponseWriter, r *http.Request) {
	// accept either GET or POST
	_, err := w.Write([]byte("OK"))
	if err != nil {
		httpError(w, r, err, http.StatusInternalServerError)
	}
}

func (apiServer *APIServer) readyz(w http.ResponseWriter, r *http.Request) {
	// the store backs every endpoint, so readiness means the store answers
	if _, err := apiServer.Store.ListUsers(r.Context()); err != nil {
		httpError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	_, err := w.Write([]byte("READY"))
	if err != nil {
		httpError(w, r, err, http.StatusInternalServerError)
	}
}

func (apiServer *APIServer) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, VersionResponse{VersionInfo: version.Get()})
}
