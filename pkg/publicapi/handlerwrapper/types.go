package handlerwrapper

import "context"

type HTTPRequestInfo struct {
	URI        string `json:"uri"`
	Method     string `json:"method"` // GET etc.
	StatusCode int    `json:"status_code"` // response code, like 200, 404
	Size       int64  `json:"size"`        // number of bytes of the response sent
	Duration   int64  `json:"duration"`    // how long the handler took, in milliseconds

	Referer   string `json:"referer,omitempty"`
	Ipaddr    string `json:"ipaddr"`
	UserAgent string `json:"user_agent"`
}

type RequestInfoHandler interface {
	Handle(context.Context, *HTTPRequestInfo)
}
