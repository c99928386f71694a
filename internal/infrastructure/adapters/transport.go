package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/resilience"
)

// Per-marketplace breakers and limiters are shared across adapter
// instances so that state survives the per-call adapter lifecycle.
var (
	sharedMu       sync.Mutex
	sharedBreakers = map[domain.Marketplace]*gobreaker.CircuitBreaker{}
	sharedLimiters = map[domain.Marketplace]*rate.Limiter{}
)

var marketplaceRates = map[domain.Marketplace]rate.Limit{
	domain.MarketplaceOzon:   20,
	domain.MarketplaceWB:     10,
	domain.MarketplaceYandex: 20,
}

func breakerFor(marketplace domain.Marketplace) *gobreaker.CircuitBreaker {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if cb, ok := sharedBreakers[marketplace]; ok {
		return cb
	}
	cb := resilience.NewBreaker(resilience.DefaultBreakerConfig(string(marketplace)), nil)
	sharedBreakers[marketplace] = cb
	return cb
}

func limiterFor(marketplace domain.Marketplace) *rate.Limiter {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if l, ok := sharedLimiters[marketplace]; ok {
		return l
	}
	r, ok := marketplaceRates[marketplace]
	if !ok {
		r = 10
	}
	l := rate.NewLimiter(r, int(r)*2)
	sharedLimiters[marketplace] = l
	return l
}

// transport performs JSON HTTP calls against one marketplace API with
// rate limiting, circuit breaking and one retry on throttling.
type transport struct {
	marketplace domain.Marketplace
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	authorize   func(*http.Request)
}

func newTransport(marketplace domain.Marketplace, authorize func(*http.Request)) *transport {
	return &transport{
		marketplace: marketplace,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		breaker:     breakerFor(marketplace),
		limiter:     limiterFor(marketplace),
		authorize:   authorize,
	}
}

// doJSON performs a request and decodes the JSON response into out.
// A single retry is attempted when the marketplace throttles the call.
func (t *transport) doJSON(ctx context.Context, method, rawURL string, query url.Values, body, out any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnknown, "rate limiter wait", err)
		}
	}

	retryAfter, err := t.execute(ctx, method, rawURL, query, body, out)
	if err == nil {
		return nil
	}
	if !domain.IsErrorKind(err, domain.ErrKindRateLimited) {
		return err
	}

	select {
	case <-time.After(retryAfter):
	case <-ctx.Done():
		return domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnavailable, "context cancelled during throttle backoff", ctx.Err())
	}

	_, err = t.execute(ctx, method, rawURL, query, body, out)
	return err
}

func (t *transport) execute(ctx context.Context, method, rawURL string, query url.Values, body, out any) (time.Duration, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnknown, "encoding request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return 0, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnknown, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.authorize != nil {
		t.authorize(req)
	}

	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnavailable, "request failed", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnavailable, "reading response", err)
		}

		if kindErr := t.classifyStatus(resp, respBody); kindErr != nil {
			return nil, kindErr
		}
		return respBody, nil
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return 0, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnavailable, "circuit breaker open", err)
		}
		var mpErr *domain.MarketplaceError
		if errors.As(err, &mpErr) {
			return mpErr.RetryAfter, err
		}
		return 0, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnknown, "marketplace call failed", err)
	}

	if out != nil {
		respBody := result.([]byte)
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return 0, domain.WrapMarketplaceError(t.marketplace, domain.ErrKindUnknown, "decoding response", err)
			}
		}
	}
	return 0, nil
}

// classifyStatus maps HTTP status codes to the marketplace error taxonomy
func (t *transport) classifyStatus(resp *http.Response, body []byte) error {
	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return t.statusError(domain.ErrKindAuth, status, body, 0)
	case status == http.StatusTooManyRequests:
		return t.statusError(domain.ErrKindRateLimited, status, body, parseRetryAfter(resp))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusNotFound || status == http.StatusConflict:
		return t.statusError(domain.ErrKindValidation, status, body, 0)
	case status >= 500:
		return t.statusError(domain.ErrKindUnavailable, status, body, 0)
	default:
		return t.statusError(domain.ErrKindUnknown, status, body, 0)
	}
}

func (t *transport) statusError(kind domain.ErrorKind, status int, body []byte, retryAfter time.Duration) error {
	msg := fmt.Sprintf("status %d", status)
	if len(body) > 0 {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		msg = fmt.Sprintf("status %d: %s", status, snippet)
	}
	err := domain.NewMarketplaceError(t.marketplace, kind, msg)
	err.RetryAfter = retryAfter
	return err
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 && secs <= 60 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}
