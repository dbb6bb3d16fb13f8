package circuitbreaker

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPWrapper wraps an http.Client with a circuit breaker. 5xx responses
// count as breaker failures; 4xx do not trip it.
type HTTPWrapper struct {
	client  *http.Client
	breaker *Breaker
	name    string
	service string
}

// NewHTTPWrapper creates an HTTP wrapper registered with the default
// collector.
func NewHTTPWrapper(client *http.Client, name, service string, logger *zap.Logger) *HTTPWrapper {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	b := New(name, HTTPProfile().ToConfig(), logger)
	DefaultCollector.Register(name, service, b)
	return &HTTPWrapper{client: client, breaker: b, name: name, service: service}
}

// Do executes the request through the breaker. When the breaker classified a
// 5xx as a failure the underlying response is still returned to the caller.
func (hw *HTTPWrapper) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := hw.breaker.Execute(req.Context(), func() error {
		var callErr error
		resp, callErr = hw.client.Do(req)
		if callErr != nil {
			return callErr
		}
		if resp.StatusCode >= 500 {
			return &httpStatusError{code: resp.StatusCode}
		}
		return nil
	})

	DefaultCollector.RecordRequest(hw.name, hw.service, hw.breaker.State(), err == nil)

	if _, ok := err.(*httpStatusError); ok {
		return resp, nil
	}
	return resp, err
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return http.StatusText(e.code) }
