package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClient_Get(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantBody   string
		wantStatus int
	}{
		{
			name: "success with headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
				assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
				_, _ = w.Write([]byte(`{"ok":true}`))
			},
			wantBody: `{"ok":true}`,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewDefaultClient(0)
			header := http.Header{}
			header.Set("X-Api-Key", "secret")
			body, err := client.Get(context.Background(), server.URL, header)

			if tt.wantStatus != 0 {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
				assert.Equal(t, tt.wantStatus == http.StatusNotFound, IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestDefaultClient_GetRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statuses      []int
		expectCalls   int32
		expectSuccess bool
	}{
		{name: "transient failure recovers", statuses: []int{http.StatusServiceUnavailable, http.StatusOK}, expectCalls: 2, expectSuccess: true},
		{name: "rate limited recovers", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, expectCalls: 2, expectSuccess: true},
		{name: "persistent failure gives up", statuses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}, expectCalls: 3},
		{name: "not found is not retried", statuses: []int{http.StatusNotFound}, expectCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[min(int(n), len(tt.statuses))-1])
			}))
			defer server.Close()

			client := NewDefaultClient(0, WithRetry(3, time.Millisecond))
			_, err := client.Get(context.Background(), server.URL, nil)
			if tt.expectSuccess {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			assert.Equal(t, tt.expectCalls, calls.Load())
		})
	}
}

func TestDefaultClient_PostForm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		_, _ = fmt.Fprintf(w, `{"fn":%q,"user":%q}`, r.Form.Get("wsfunction"), r.Form.Get("users[0][id]"))
	}))
	defer server.Close()

	form := url.Values{}
	form.Set("wsfunction", "core_user_get_users_by_field")
	form.Set("users[0][id]", "42")

	body, err := NewDefaultClient(0).PostForm(context.Background(), server.URL, form)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fn":"core_user_get_users_by_field","user":"42"}`, string(body))
}

func TestDefaultClient_PostFormRedactsQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewDefaultClient(0).PostForm(context.Background(), server.URL+"?wstoken=abc", url.Values{})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "abc"))
}

func TestHTTPError_Error(t *testing.T) {
	t.Parallel()

	err := NewHTTPError(http.StatusTeapot, "http://example.com", "teapot")
	assert.Equal(t, "HTTP 418 for URL http://example.com: teapot", err.Error())
	assert.False(t, IsNotFound(err))
}
