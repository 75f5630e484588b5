package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTimeoutBoundsSlowRequests(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewBaseClient(srv.URL)
	client.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := client.Get(context.Background(), "/slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStatusErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get(ClientTokenHeader))
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewRetroboardClient(srv.URL, "abc")
	_, err := client.Timer(context.Background(), "7")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "nope")
}
