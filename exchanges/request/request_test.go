package request

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var (
	testURL      string
	retryCounter int32
)

func TestMain(m *testing.M) {
	serverLimitRetry := NewRateLimit(time.Millisecond*200, 1)
	sm := http.NewServeMux()
	sm.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Test", "gct")
		if _, err := io.WriteString(w, `{"response":true}`); err != nil {
			log.Fatal(err)
		}
	})
	sm.HandleFunc("/error", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		if _, err := io.WriteString(w, `{"code":-1021,"msg":"Timestamp for this request is outside of the recvWindow."}`); err != nil {
			log.Fatal(err)
		}
	})
	sm.HandleFunc("/rate-retry", func(w http.ResponseWriter, req *http.Request) {
		if !serverLimitRetry.Allow() {
			w.Header().Add("Retry-After", "0")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		if _, err := io.WriteString(w, `{"response":true}`); err != nil {
			log.Fatal(err)
		}
	})
	sm.HandleFunc("/always-retry", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&retryCounter, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	sm.HandleFunc("/echo-ua", func(w http.ResponseWriter, req *http.Request) {
		if _, err := io.WriteString(w, `{"ua":"`+req.Header.Get(userAgent)+`","sig":"`+req.Header.Get("X-Sig")+`"}`); err != nil {
			log.Fatal(err)
		}
	})

	server := httptest.NewServer(sm)
	testURL = server.URL
	issues := m.Run()
	server.Close()
	os.Exit(issues)
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New("", new(http.Client))
	assert.ErrorIs(t, err, errServiceNameUnset)
	_, err = New("test", nil)
	assert.ErrorIs(t, err, errHTTPClientIsNil)

	r, err := New("test", new(http.Client), WithMaxRetries(1), WithUserAgent("gct"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.maxRetries)
	assert.Equal(t, "gct", r.UserAgent)
	assert.NotNil(t, r.backoff)
	assert.NotNil(t, r.retryPolicy)
}

func TestNewRateLimit(t *testing.T) {
	t.Parallel()
	r := NewRateLimit(time.Second*10, 5)
	assert.Equal(t, rate.Limit(0.5), r.Limit())

	r = NewRateLimit(time.Second*2, 1)
	assert.Equal(t, rate.Limit(0.5), r.Limit(), "rate limiting factor should match")

	assert.Equal(t, rate.Inf, NewRateLimit(time.Second*2, 0).Limit())
	assert.Equal(t, rate.Inf, NewRateLimit(0, 69).Limit())
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()
	r, err := New("test", new(http.Client), WithUserAgent("gct/1.0"))
	require.NoError(t, err)

	var nilItem *Item
	_, err = nilItem.validateRequest(context.Background(), r)
	assert.ErrorIs(t, err, errRequestItemNil)

	_, err = (&Item{}).validateRequest(context.Background(), r)
	assert.ErrorIs(t, err, errInvalidPath)

	req, err := (&Item{
		Method:  http.MethodGet,
		Path:    testURL,
		Headers: map[string]string{"X-Sig": "abc"},
	}).validateRequest(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "gct/1.0", req.Header.Get(userAgent))
	assert.Equal(t, "abc", req.Header.Get("X-Sig"))

	req, err = (&Item{
		Method:  http.MethodGet,
		Path:    testURL,
		Headers: map[string]string{userAgent: "custom"},
	}).validateRequest(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "custom", req.Header.Get(userAgent), "explicit user agent should not be replaced")
}

func TestSendPayload(t *testing.T) {
	t.Parallel()
	var r *Requester
	assert.ErrorIs(t, r.SendPayload(context.Background(), Unset, nil), errRequestSystemIsNil)

	r, err := New("test", new(http.Client), WithUserAgent("gct"))
	require.NoError(t, err)
	assert.ErrorIs(t, r.SendPayload(context.Background(), Unset, nil), errRequestFunctionIsNil)

	genErr := errors.New("generate failure")
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) { return nil, genErr })
	assert.ErrorIs(t, err, genErr)

	var resp struct {
		Response bool `json:"response"`
	}
	var headers http.Header
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) {
		return &Item{
			Method:         http.MethodGet,
			Path:           testURL,
			Result:         &resp,
			Verbose:        true,
			HTTPDebugging:  true,
			HeaderResponse: &headers,
		}, nil
	})
	require.NoError(t, err)
	assert.True(t, resp.Response)
	assert.Equal(t, "gct", headers.Get("X-Test"))

	var echo struct {
		UA  string `json:"ua"`
		Sig string `json:"sig"`
	}
	err = r.SendPayload(WithVerbose(context.Background()), Unset, func() (*Item, error) {
		return &Item{
			Method:  http.MethodPost,
			Path:    testURL + "/echo-ua",
			Headers: map[string]string{"X-Sig": "signed"},
			Body:    strings.NewReader("a=b"),
			Result:  &echo,
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "gct", echo.UA)
	assert.Equal(t, "signed", echo.Sig)

	atomic.StoreInt32(&r.jobs, MaxRequestJobs)
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: testURL}, nil
	})
	assert.ErrorIs(t, err, errMaxRequestJobs)
	assert.Equal(t, int32(MaxRequestJobs), atomic.LoadInt32(&r.jobs))
}

func TestSendPayloadHTTPError(t *testing.T) {
	t.Parallel()
	r, err := New("test", new(http.Client))
	require.NoError(t, err)
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: testURL + "/error"}, nil
	})
	require.ErrorIs(t, err, ErrUnsuccessfulHTTPStatus)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Contains(t, string(httpErr.Body), "-1021")
}

func TestDoRequestRetries(t *testing.T) {
	t.Parallel()
	r, err := New("test", new(http.Client),
		WithBackoff(LinearBackoff(time.Millisecond*50, time.Millisecond*200)),
		WithMaxRetries(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var failed int32
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var resp struct {
				Response bool `json:"response"`
			}
			if err := r.SendPayload(context.Background(), Auth, func() (*Item, error) {
				return &Item{Method: http.MethodGet, Path: testURL + "/rate-retry", Result: &resp}, nil
			}); err != nil || !resp.Response {
				atomic.StoreInt32(&failed, 1)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&failed), "retried requests should eventually succeed")
}

func TestDoRequestRetryExhausted(t *testing.T) {
	r, err := New("test", new(http.Client),
		WithBackoff(func(int) time.Duration { return 0 }),
		WithMaxRetries(2))
	require.NoError(t, err)

	atomic.StoreInt32(&retryCounter, 0)
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: testURL + "/always-retry"}, nil
	})
	assert.ErrorIs(t, err, errFailedToRetryRequest)
	assert.Equal(t, int32(3), atomic.LoadInt32(&retryCounter), "should attempt once plus two retries")

	atomic.StoreInt32(&retryCounter, 0)
	err = r.SendPayload(WithRetryNotAllowed(context.Background()), Unset, func() (*Item, error) {
		return &Item{Method: http.MethodPost, Path: testURL + "/always-retry"}, nil
	})
	assert.ErrorIs(t, err, ErrUnsuccessfulHTTPStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&retryCounter), "retry not allowed should send exactly once")
}

func TestDoRequestNotRetryable(t *testing.T) {
	t.Parallel()
	notRetryErr := errors.New("not retryable")
	r, err := New("test", new(http.Client), WithRetryPolicy(func(*http.Response, error) (bool, error) {
		return false, notRetryErr
	}))
	require.NoError(t, err)
	err = r.SendPayload(context.Background(), Unset, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: testURL}, nil
	})
	assert.ErrorIs(t, err, notRetryErr)
}

func TestRateLimiting(t *testing.T) {
	t.Parallel()
	limits := RateLimitDefinitions{
		Auth:   NewRateLimit(time.Millisecond*100, 1),
		UnAuth: NewRateLimit(0, 0),
	}
	r, err := New("test", new(http.Client), WithLimiter(limits))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.InitiateRateLimit(ctx, Auth))
	assert.ErrorIs(t, r.InitiateRateLimit(WithDelayNotAllowed(ctx), Auth), ErrDelayNotAllowed)

	start := time.Now()
	require.NoError(t, r.InitiateRateLimit(ctx, Auth))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond*50, "second request should wait on the limiter")

	require.NoError(t, r.InitiateRateLimit(ctx, UnAuth))
	assert.ErrorIs(t, r.InitiateRateLimit(ctx, Unset), errLimiterNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, r.InitiateRateLimit(cancelled, Auth), context.Canceled)

	require.NoError(t, r.DisableRateLimiter())
	assert.ErrorIs(t, r.DisableRateLimiter(), errRateLimiterAlreadyDisabled)
	require.NoError(t, r.InitiateRateLimit(WithDelayNotAllowed(ctx), Auth), "disabled limiter should never delay")
	require.NoError(t, r.EnableRateLimiter())
	assert.ErrorIs(t, r.EnableRateLimiter(), errRateLimiterAlreadyEnabled)

	var nilR *Requester
	assert.ErrorIs(t, nilR.InitiateRateLimit(ctx, Auth), errRequestSystemIsNil)
}

func TestBasicLimit(t *testing.T) {
	t.Parallel()
	b := NewBasicRateLimit(time.Second, 1)
	ctx := context.Background()
	require.NoError(t, b.Limit(ctx, Unset))
	tight, cancel := context.WithTimeout(ctx, time.Millisecond*10)
	defer cancel()
	assert.ErrorIs(t, b.Limit(tight, Unset), context.DeadlineExceeded)
}

func TestSetProxy(t *testing.T) {
	t.Parallel()
	r, err := New("test", &http.Client{Transport: new(http.Transport)})
	require.NoError(t, err)
	assert.ErrorIs(t, r.SetProxy(nil), errNoProxyURL)
	u, err := url.Parse("http://www.google.com")
	require.NoError(t, err)
	require.NoError(t, r.SetProxy(u))

	r, err = New("test", new(http.Client))
	require.NoError(t, err)
	assert.ErrorIs(t, r.SetProxy(u), errTransportNotSet)
}

func TestSetHTTPClientTimeout(t *testing.T) {
	t.Parallel()
	r, err := New("test", new(http.Client))
	require.NoError(t, err)
	require.NoError(t, r.SetHTTPClientTimeout(time.Second))
	assert.Equal(t, time.Second, r.HTTPClient.Timeout)
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()
	for name, tt := range map[string]struct {
		resp  *http.Response
		err   error
		retry bool
		isErr bool
	}{
		"DNS Error":         {err: &net.DNSError{Err: "fake"}, isErr: true},
		"DNS Timeout":       {err: &net.DNSError{Err: "fake", IsTimeout: true}, retry: true},
		"Too Many Requests": {resp: &http.Response{StatusCode: http.StatusTooManyRequests}, retry: true},
		"Not Found":         {resp: &http.Response{StatusCode: http.StatusNotFound}},
		"Retry After": {
			resp:  &http.Response{StatusCode: http.StatusTeapot, Header: http.Header{"Retry-After": []string{"0.5"}}},
			retry: true,
		},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			retry, err := DefaultRetryPolicy(tt.resp, tt.err)
			if tt.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.retry, retry)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()
	now := time.Date(2020, time.April, 20, 13, 31, 13, 0, time.UTC)
	header := func(v string) *http.Response {
		return &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{v}}}
	}
	assert.Zero(t, RetryAfter(nil, now))
	assert.Zero(t, RetryAfter(header(""), now))
	assert.Zero(t, RetryAfter(header("0.5"), now))
	assert.Equal(t, 3*time.Second, RetryAfter(header("3"), now))
	assert.Zero(t, RetryAfter(header("2020-04-02T13:31:18Z"), now))
	assert.Equal(t, 5*time.Second, RetryAfter(header("Mon, 20 Apr 2020 13:31:18 GMT"), now))
}

func TestLinearBackoff(t *testing.T) {
	t.Parallel()
	b := LinearBackoff(time.Millisecond*100, time.Millisecond*250)
	assert.Equal(t, time.Millisecond*100, b(1))
	assert.Equal(t, time.Millisecond*200, b(2))
	assert.Equal(t, time.Millisecond*250, b(5))
}
