package publicapi

import (
	"net/http"
)

func (apiServer *APIServer) cacheStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, CacheStatsResponse{Stats: apiServer.Cache.Stats()})
}

func (apiServer *APIServer) cacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req InvalidateCacheRequest
	if err := decodeRequest(r, &req); err != nil {
		httpError(w, r, err, http.StatusBadRequest)
		return
	}

	removed := apiServer.Cache.InvalidatePattern(req.Pattern)
	writeJSON(w, r, InvalidateCacheResponse{Removed: removed})
}
