package system

import "net/http"

// Client performs HTTP requests for remote documents. *http.Client satisfies it.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Client = (*http.Client)(nil)
