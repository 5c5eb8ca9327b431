package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

var (
	// ErrInvalidRegistryID is returned for ids that cannot name a course
	// unit realisation
	ErrInvalidRegistryID = errors.New("must start with a letter or digit and contain only letters, digits and . _ : -")
	// ErrInvalidRunType is returned for malformed run type names
	ErrInvalidRunType = errors.New("must be a lower-case name")

	registryIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)
	runTypePattern    = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
)

// ValidateRegistryID checks the format of a course unit realisation id as
// used in paths, request bodies and Moodle id numbers.
func ValidateRegistryID(id string) error {
	if !registryIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return ErrInvalidRegistryID
	}
	return nil
}

// ValidateRunType checks the format of a run type name. Whether the run type
// exists is up to the run state service.
func ValidateRunType(name string) error {
	if !runTypePattern.MatchString(name) {
		return ErrInvalidRunType
	}
	return nil
}

// PathParam decodes the chi path parameter name and checks it with validate.
func PathParam(r *http.Request, name string, validate func(string) error) (string, error) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", name)
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	if err := validate(value); err != nil {
		return "", fmt.Errorf("%s %w", name, err)
	}
	return value, nil
}
