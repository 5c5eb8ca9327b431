package identity_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
	"github.com/coursesync/sisu-moodle-sync/internal/identity"
	"github.com/coursesync/sisu-moodle-sync/internal/identity/mocks"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle/moodletest"
)

func TestResolver_ResolveAccount(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/iam/persons/p-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"username":"alice"}`))
	})
	mux.HandleFunc("/iam/persons/p-2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"username":"bob"}`))
	})
	mux.HandleFunc("/iam/persons/p-3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"username":""}`))
	})
	mux.HandleFunc("/iam/persons/p-5", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fake := moodletest.New()
	fake.AddUser(42, "alice")

	resolver := identity.NewResolver(httpclient.NewDefaultClient(0), server.URL+"/iam", fake)

	tests := []struct {
		name     string
		personID string
		want     *identity.Account
		wantErr  error
	}{
		{name: "resolved", personID: "p-1", want: &identity.Account{PersonID: "p-1", Username: "alice", MoodleUserID: 42}},
		{name: "no moodle account", personID: "p-2", wantErr: identity.ErrAccountNotFound},
		{name: "empty username", personID: "p-3", wantErr: identity.ErrUsernameNotFound},
		{name: "unknown person", personID: "p-4", wantErr: identity.ErrUsernameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.ResolveAccount(context.Background(), tt.personID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("transport failure is not a not-found", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.ResolveAccount(context.Background(), "p-5")
		require.Error(t, err)
		assert.False(t, errors.Is(err, identity.ErrUsernameNotFound))
		assert.False(t, errors.Is(err, identity.ErrAccountNotFound))
	})
}

func TestCachedResolver(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	next := mocks.NewMockResolver(ctrl)
	alice := &identity.Account{PersonID: "p-1", Username: "alice", MoodleUserID: 42}
	next.EXPECT().ResolveAccount(gomock.Any(), "p-1").Return(alice, nil).Times(1)
	next.EXPECT().ResolveAccount(gomock.Any(), "p-2").Return(nil, identity.ErrUsernameNotFound).Times(2)

	reg := prometheus.NewRegistry()
	cached := identity.NewCachedResolver(next, 10, time.Hour, identity.WithRegisterer(reg))
	ctx := context.Background()

	for range 3 {
		got, err := cached.ResolveAccount(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, alice, got)
	}

	for range 2 {
		_, err := cached.ResolveAccount(ctx, "p-2")
		assert.ErrorIs(t, err, identity.ErrUsernameNotFound)
	}

	count, err := testutil.GatherAndCount(reg, "sms_identity_cache_hits_total", "sms_identity_cache_misses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		values[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, values["sms_identity_cache_hits_total"])
	assert.Equal(t, 3.0, values["sms_identity_cache_misses_total"])
}

func TestCachedResolver_Purge(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	next := mocks.NewMockResolver(ctrl)
	next.EXPECT().ResolveAccount(gomock.Any(), "p-1").
		Return(&identity.Account{PersonID: "p-1", MoodleUserID: 1}, nil).Times(2)

	cached := identity.NewCachedResolver(next, 10, time.Hour)
	_, err := cached.ResolveAccount(context.Background(), "p-1")
	require.NoError(t, err)
	cached.Purge()
	_, err = cached.ResolveAccount(context.Background(), "p-1")
	require.NoError(t, err)
}
