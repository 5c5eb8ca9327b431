package v1_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/coursesync/sisu-moodle-sync/internal/api/v1"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle/moodletest"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadinessChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		release   string
		minimum   string
		failSite  bool
		pingErr   error
		wantError string
	}{
		{name: "ready", release: "4.3.2+ (Build: 20240112)", minimum: "3.9"},
		{name: "any release accepted without minimum", release: "unknown"},
		{name: "release too old", release: "3.5.1 (Build: 20180517)", minimum: "3.9", wantError: "older than 3.9"},
		{name: "unparsable release", release: "", minimum: "3.9", wantError: "older than"},
		{name: "moodle down", release: "4.3", minimum: "3.9", failSite: true, wantError: "moodle unavailable"},
		{name: "storage down", release: "4.3", pingErr: errors.New("refused"), wantError: "storage unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lms := moodletest.New()
			lms.Release = tt.release
			if tt.failSite {
				lms.Fail = func(string) error { return errors.New("bad gateway") }
			}
			ping := pingerFunc(func(context.Context) error { return tt.pingErr })

			err := v1.NewReadinessChecker(lms, tt.minimum, ping).CheckReadiness(context.Background())

			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}
