// Package identity maps registry person ids to Moodle user accounts.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
)

var (
	// ErrUsernameNotFound is returned when the identity service has no username for the person
	ErrUsernameNotFound = errors.New("username not found")

	// ErrAccountNotFound is returned when Moodle has no account with the person's username
	ErrAccountNotFound = errors.New("moodle account not found")
)

// Account is a resolved Moodle account of a registry person
type Account struct {
	PersonID     string
	Username     string
	MoodleUserID int64
}

// Resolver resolves registry persons to Moodle accounts
//
//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Resolver
type Resolver interface {
	ResolveAccount(ctx context.Context, personID string) (*Account, error)
}

type httpResolver struct {
	http    httpclient.Client
	baseURL string
	moodle  moodle.Client
}

// NewResolver creates a Resolver that looks the username up from the identity
// service at baseURL and the account from Moodle.
func NewResolver(httpClient httpclient.Client, baseURL string, moodleClient moodle.Client) Resolver {
	return &httpResolver{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		moodle:  moodleClient,
	}
}

func (r *httpResolver) ResolveAccount(ctx context.Context, personID string) (*Account, error) {
	body, err := r.http.Get(ctx, r.baseURL+"/persons/"+url.PathEscape(personID), nil)
	if err != nil {
		if httpclient.IsNotFound(err) {
			return nil, fmt.Errorf("person %s: %w", personID, ErrUsernameNotFound)
		}
		return nil, fmt.Errorf("identity lookup of person %s failed: %w", personID, err)
	}

	var person struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("failed to decode identity response for person %s: %w", personID, err)
	}
	if person.Username == "" {
		return nil, fmt.Errorf("person %s: %w", personID, ErrUsernameNotFound)
	}

	user, err := r.moodle.GetUserByUsername(ctx, person.Username)
	if err != nil {
		if moodle.IsNotFound(err) {
			return nil, fmt.Errorf("person %s (%s): %w", personID, person.Username, ErrAccountNotFound)
		}
		return nil, err
	}

	return &Account{PersonID: personID, Username: person.Username, MoodleUserID: user.ID}, nil
}
