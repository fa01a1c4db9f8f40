package collector

import (
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobsync/internal/model"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newRewriteClient returns a Client whose requests all land on srv,
// whatever host they were addressed to.
func newRewriteClient(srv *httptest.Server) *Client {
	return NewClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}, nil, nil, nil)
}

// drain collects a sequence, separating postings from errors.
func drain(t *testing.T, seq iter.Seq2[model.RawPosting, error]) ([]model.RawPosting, []error) {
	t.Helper()
	var postings []model.RawPosting
	var errs []error
	for p, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		postings = append(postings, p)
	}
	return postings, errs
}
