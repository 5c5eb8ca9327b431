// Package moodle is a client for the Moodle web service REST API.
package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
	"github.com/coursesync/sisu-moodle-sync/internal/otel"
)

const restPath = "/webservice/rest/server.php"

// Client is the subset of the Moodle web service used by the sync
type Client interface {
	GetSiteInfo(ctx context.Context) (*SiteInfo, error)
	GetCourse(ctx context.Context, courseID int64) (*Course, error)
	CreateCourse(ctx context.Context, c NewCourse) (int64, error)
	GetEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	BulkEnroll(ctx context.Context, courseID int64, enrolments []Enrolment) error
	BulkSuspend(ctx context.Context, courseID int64, roleID int64, userIDs []int64) error
	BulkAssignRoles(ctx context.Context, courseID int64, assignments []RoleAssignment) error
	BulkUnassignRoles(ctx context.Context, courseID int64, assignments []RoleAssignment) error

	GetGroupingsWithGroups(ctx context.Context, courseID int64) ([]Grouping, error)
	GetCourseGroups(ctx context.Context, courseID int64) ([]Group, error)
	GetGroupMembers(ctx context.Context, groupIDs []int64) (map[int64][]int64, error)
	CreateGroupings(ctx context.Context, courseID int64, groupings []NewGroup) ([]int64, error)
	CreateGroups(ctx context.Context, courseID int64, groups []NewGroup) ([]int64, error)
	UpdateGroupings(ctx context.Context, updates []GroupUpdate) error
	UpdateGroups(ctx context.Context, updates []GroupUpdate) error
	AssignGroupsToGrouping(ctx context.Context, groupingID int64, groupIDs []int64) error
	DeleteGroupings(ctx context.Context, groupingIDs []int64) error
	DeleteGroups(ctx context.Context, groupIDs []int64) error
	AddGroupMembers(ctx context.Context, members []GroupMember) error
	RemoveGroupMembers(ctx context.Context, members []GroupMember) error
}

// createCourseMu serializes course creation because it temporarily switches
// the language of the shared service account.
var createCourseMu sync.Mutex

type restClient struct {
	http            httpclient.Client
	endpoint        string
	token           string
	serviceLanguage string
	tracer          trace.Tracer

	// service account id, fetched on first course creation
	siteUserID int64
}

// Option configures the REST client
type Option func(*restClient)

// WithTracer records a span for every web service call
func WithTracer(tracer trace.Tracer) Option {
	return func(c *restClient) {
		c.tracer = tracer
	}
}

// NewClient creates a Client for the Moodle site at baseURL.
// serviceLanguage is restored on the service account after creating a course.
func NewClient(httpClient httpclient.Client, baseURL, token, serviceLanguage string, opts ...Option) Client {
	c := &restClient{
		http:            httpClient,
		endpoint:        strings.TrimRight(baseURL, "/") + restPath,
		token:           token,
		serviceLanguage: serviceLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// params builds the indexed form parameters Moodle expects for arrays of structs
type params struct {
	url.Values
}

func newParams() params {
	return params{Values: url.Values{}}
}

func (p params) setInt(key string, v int64) params {
	p.Set(key, strconv.FormatInt(v, 10))
	return p
}

func (p params) setStr(key, v string) params {
	p.Set(key, v)
	return p
}

func (p params) setBool(key string, v bool) params {
	if v {
		p.Set(key, "1")
	} else {
		p.Set(key, "0")
	}
	return p
}

// call invokes a web service function and decodes the JSON result into out,
// which may be nil for functions returning null.
func (c *restClient) call(ctx context.Context, function string, p params, out any) error {
	ctx, span := otel.StartSpan(ctx, c.tracer, "moodle."+function,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(otel.AttrWSFunction.String(function)),
	)
	defer span.End()

	p.Set("wstoken", c.token)
	p.Set("wsfunction", function)
	p.Set("moodlewsrestformat", "json")

	body, err := c.http.PostForm(ctx, c.endpoint, p.Values)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("moodle %s failed: %w", function, err)
	}

	if exc := parseException(body); exc != nil {
		exc.Function = function
		otel.RecordError(span, exc)
		return exc
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to decode moodle %s response: %w", function, err)
	}
	return nil
}

func parseException(body []byte) *Exception {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var exc Exception
	if err := json.Unmarshal(trimmed, &exc); err != nil || exc.Exception == "" {
		return nil
	}
	return &exc
}
