package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistryID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "realisation id", id: "otm-8c6f1c2e-7b1d-4e63-9b1a-0d7c2f3b4a5e"},
		{name: "university prefix", id: "hy-CUR-142071240"},
		{name: "namespaced", id: "hy-opt-cur-2324-d5aa3e1b"},
		{name: "dotted and colon", id: "tuni:cur.2024_1"},
		{name: "empty", id: "", wantErr: true},
		{name: "whitespace", id: "otm 1", wantErr: true},
		{name: "leading dash", id: "-otm-1", wantErr: true},
		{name: "leading dot", id: ".otm", wantErr: true},
		{name: "traversal", id: "otm..1", wantErr: true},
		{name: "slash", id: "otm/1", wantErr: true},
		{name: "sync prefix separator only", id: ":", wantErr: true},
		{name: "non ascii", id: "kurssi-ä", wantErr: true},
		{name: "too long", id: "a" + strings.Repeat("b", 128), wantErr: true},
		{name: "longest accepted", id: "a" + strings.Repeat("b", 127)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRegistryID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegistryID)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateRunType(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"full", "unlock", "weekly-2"} {
		assert.NoError(t, ValidateRunType(name), name)
	}
	for _, name := range []string{"", "Full", "2full", "full run", strings.Repeat("a", 33)} {
		assert.ErrorIs(t, ValidateRunType(name), ErrInvalidRunType, name)
	}
}

func TestPathParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantValue  string
		wantStatus int
		wantErrMsg string
	}{
		{name: "plain id", path: "/courses/otm-1", wantValue: "otm-1"},
		{name: "encoded colon", path: "/courses/tuni%3Acur-1", wantValue: "tuni:cur-1"},
		{name: "encoded space", path: "/courses/otm%201", wantErrMsg: "id " + ErrInvalidRegistryID.Error()},
		{name: "encoded slash", path: "/courses/otm%2F1", wantErrMsg: "id " + ErrInvalidRegistryID.Error()},
		{name: "encoded traversal", path: "/courses/%2E%2E", wantErrMsg: "id " + ErrInvalidRegistryID.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				value  string
				err    error
				called bool
			)
			router := chi.NewRouter()
			router.Get("/courses/{id}", func(_ http.ResponseWriter, r *http.Request) {
				called = true
				value, err = PathParam(r, "id", ValidateRegistryID)
			})
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.True(t, called)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestPathParam_BadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantErrMsg string
	}{
		{name: "broken escape", raw: "otm%2", wantErrMsg: "invalid URL encoding in runType"},
		{name: "bad hex", raw: "otm%ZZ", wantErrMsg: "invalid URL encoding in runType"},
		{name: "missing", raw: "", wantErrMsg: "runType is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("runType", tt.raw)
			req := httptest.NewRequest(http.MethodPost, "/runs/x", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			_, err := PathParam(req, "runType", ValidateRunType)
			require.Error(t, err)
			assert.Equal(t, tt.wantErrMsg, err.Error())
		})
	}
}
