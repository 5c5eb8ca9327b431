// Package sisu reads course-unit-realisations from the Sisu study registry.
package sisu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
)

// ErrNotFound is returned when the registry does not know the realisation
var ErrNotFound = errors.New("course unit realisation not found")

// Client reads realisations from the registry
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	GetCourseUnitRealisation(ctx context.Context, id string) (*Realisation, error)
}

type restClient struct {
	http    httpclient.Client
	baseURL string
	apiKey  string
}

// NewClient creates a registry Client for the REST API at baseURL
func NewClient(httpClient httpclient.Client, baseURL, apiKey string) Client {
	return &restClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type realisationDTO struct {
	ID             string        `json:"id"`
	Name           LocalizedText `json:"name"`
	FlowState      string        `json:"flowState"`
	ActivityPeriod struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"activityPeriod"`
	ResponsibilityInfos []struct {
		PersonID string `json:"personId"`
		RoleURN  string `json:"roleUrn"`
	} `json:"responsibilityInfos"`
	StudyGroupSets []struct {
		LocalID        string        `json:"localId"`
		Name           LocalizedText `json:"name"`
		StudySubGroups []struct {
			ID        string        `json:"id"`
			Name      LocalizedText `json:"name"`
			Cancelled bool          `json:"cancelled"`
		} `json:"studySubGroups"`
	} `json:"studyGroupSets"`
}

type enrolmentDTO struct {
	PersonID                  string   `json:"personId"`
	State                     string   `json:"state"`
	ConfirmedStudySubGroupIDs []string `json:"confirmedStudySubGroupIds"`
}

// GetCourseUnitRealisation fetches the realisation and its enrolments
func (c *restClient) GetCourseUnitRealisation(ctx context.Context, id string) (*Realisation, error) {
	var dto realisationDTO
	if err := c.getJSON(ctx, "/course-unit-realisations/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}

	var enrolments []enrolmentDTO
	if err := c.getJSON(ctx, "/course-unit-realisations/"+url.PathEscape(id)+"/enrolments", &enrolments); err != nil {
		return nil, err
	}

	return toRealisation(&dto, enrolments)
}

func (c *restClient) getJSON(ctx context.Context, path string, out any) error {
	header := http.Header{}
	header.Set("X-Api-Key", c.apiKey)

	body, err := c.http.Get(ctx, c.baseURL+path, header)
	if err != nil {
		if httpclient.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("sisu request %s failed: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode sisu response for %s: %w", path, err)
	}
	return nil
}

func toRealisation(dto *realisationDTO, enrolments []enrolmentDTO) (*Realisation, error) {
	r := &Realisation{
		ID:        dto.ID,
		Name:      dto.Name,
		Published: dto.FlowState == FlowStatePublished,
	}

	if dto.ActivityPeriod.StartDate != "" {
		start, err := time.Parse(time.DateOnly, dto.ActivityPeriod.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", dto.ActivityPeriod.StartDate, err)
		}
		r.StartDate = start
	}
	if dto.ActivityPeriod.EndDate != "" {
		end, err := time.Parse(time.DateOnly, dto.ActivityPeriod.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", dto.ActivityPeriod.EndDate, err)
		}
		r.EndDate = &end
	}

	seenTeachers := make(map[string]bool)
	for _, info := range dto.ResponsibilityInfos {
		if info.PersonID == "" || seenTeachers[info.PersonID] {
			continue
		}
		if info.RoleURN == RoleResponsibleTeacher || info.RoleURN == RoleTeacher {
			seenTeachers[info.PersonID] = true
			r.Teachers = append(r.Teachers, Teacher{PersonID: info.PersonID})
		}
	}

	members := make(map[string][]string)
	for _, e := range enrolments {
		enrolled := e.State == EnrolmentStateEnrolled
		r.Students = append(r.Students, Student{PersonID: e.PersonID, Enrolled: enrolled})
		if !enrolled {
			continue
		}
		for _, sg := range e.ConfirmedStudySubGroupIDs {
			members[sg] = append(members[sg], e.PersonID)
		}
	}

	for _, set := range dto.StudyGroupSets {
		gs := StudyGroupSet{LocalID: set.LocalID, Name: set.Name}
		for _, sg := range set.StudySubGroups {
			gs.SubGroups = append(gs.SubGroups, StudySubGroup{
				ID:        sg.ID,
				Name:      sg.Name,
				Cancelled: sg.Cancelled,
				MemberIDs: members[sg.ID],
			})
		}
		r.StudyGroupSets = append(r.StudyGroupSets, gs)
	}

	return r, nil
}
