package handlerwrapper

import (
	"net/http"

	"github.com/felixge/httpsnoop"
)

// HTTPHandlerWrapper snoops on each response and hands the collected
// request info to a RequestInfoHandler once the inner handler returns.
type HTTPHandlerWrapper struct {
	handler     http.Handler
	infoHandler RequestInfoHandler
}

func NewHTTPHandlerWrapper(handler http.Handler, infoHandler RequestInfoHandler) *HTTPHandlerWrapper {
	return &HTTPHandlerWrapper{
		handler:     handler,
		infoHandler: infoHandler,
	}
}

func (hw *HTTPHandlerWrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics := httpsnoop.CaptureMetrics(hw.handler, w, r)

	hw.infoHandler.Handle(r.Context(), &HTTPRequestInfo{
		URI:        r.RequestURI,
		Method:     r.Method,
		StatusCode: metrics.Code,
		Size:       metrics.Written,
		Duration:   metrics.Duration.Milliseconds(),
		Referer:    r.Referer(),
		Ipaddr:     r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
}
