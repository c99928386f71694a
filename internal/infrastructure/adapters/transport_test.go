package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/resilience"
)

func newTestTransport(marketplace domain.Marketplace, server *httptest.Server, authorize func(*http.Request)) *transport {
	cfg := resilience.DefaultBreakerConfig("test-" + string(marketplace))
	cfg.MinRequests = 1000
	return &transport{
		marketplace: marketplace,
		httpClient:  server.Client(),
		breaker:     resilience.NewBreaker(cfg, nil),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		authorize:   authorize,
	}
}

func TestTransportStatusTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   domain.ErrorKind
	}{
		{"unauthorized maps to auth", http.StatusUnauthorized, domain.ErrKindAuth},
		{"forbidden maps to auth", http.StatusForbidden, domain.ErrKindAuth},
		{"bad request maps to validation", http.StatusBadRequest, domain.ErrKindValidation},
		{"unprocessable maps to validation", http.StatusUnprocessableEntity, domain.ErrKindValidation},
		{"server error maps to unavailable", http.StatusInternalServerError, domain.ErrKindUnavailable},
		{"bad gateway maps to unavailable", http.StatusBadGateway, domain.ErrKindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			rt := newTestTransport(domain.MarketplaceOzon, server, nil)
			err := rt.doJSON(context.Background(), http.MethodGet, server.URL+"/x", nil, nil, nil)
			require.Error(t, err)

			mpErr, ok := domain.AsMarketplaceError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, mpErr.Kind)
			assert.Equal(t, domain.MarketplaceOzon, mpErr.Marketplace)
		})
	}
}

func TestTransportRetriesOnceOnThrottle(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	rt := newTestTransport(domain.MarketplaceWB, server, nil)

	var out struct {
		OK bool `json:"ok"`
	}
	err := rt.doJSON(context.Background(), http.MethodGet, server.URL+"/x", nil, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransportThrottlePersistsAfterRetry(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	rt := newTestTransport(domain.MarketplaceWB, server, nil)
	err := rt.doJSON(context.Background(), http.MethodGet, server.URL+"/x", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindRateLimited))
}

func TestTransportSetsAuthorizationHeaders(t *testing.T) {
	var gotClientID, gotAPIKey string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("Client-Id")
		gotAPIKey = r.Header.Get("Api-Key")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rt := newTestTransport(domain.MarketplaceOzon, server, func(req *http.Request) {
		req.Header.Set("Client-Id", "client-1")
		req.Header.Set("Api-Key", "key-1")
	})

	err := rt.doJSON(context.Background(), http.MethodPost, server.URL+"/x", nil, map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "client-1", gotClientID)
	assert.Equal(t, "key-1", gotAPIKey)
}

func TestTransportNetworkErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rt := newTestTransport(domain.MarketplaceYandex, server, nil)
	server.Close()

	err := rt.doJSON(context.Background(), http.MethodGet, server.URL+"/x", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindUnavailable))
}
