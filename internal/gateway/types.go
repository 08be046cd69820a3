package gateway

// HealthzResponse is the JSON body of GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// InfoResponse is the JSON body of GET on non-health paths.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is the JSON envelope for all error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and human detail.
type ErrorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}
