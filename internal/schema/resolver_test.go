package schema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
)

type stubMDMS struct {
	records map[string]json.RawMessage
	calls   []string
}

func (s *stubMDMS) Search(_ context.Context, _ client.RequestInfo, _, _ string, ids []string) ([]json.RawMessage, error) {
	s.calls = append(s.calls, ids[0])
	if rec, ok := s.records[ids[0]]; ok {
		return []json.RawMessage{rec}, nil
	}
	return nil, nil
}

var _ MDMSSearcher = (*stubMDMS)(nil)

const facilitySchema = `{
  "title": "facility",
  "properties": {
    "stringProperties": [
      {"name": "Facility Name", "type": "string", "isRequired": true, "orderNumber": 2, "maxLength": 128, "errorMessage": "name needed"},
      {"name": "Facility Code", "type": "string", "isUnique": true, "freezeColumn": true},
      {"name": "Boundary Code", "type": "string", "orderNumber": 1, "hideColumn": true}
    ],
    "numberProperties": [
      {"name": "Capacity", "type": "number", "minimum": 1, "orderNumber": 2}
    ],
    "enumProperties": [
      {"name": "Facility Status", "enum": ["Permanent", "Temporary"], "isRequired": true}
    ]
  },
  "required": ["Capacity"],
  "unique": ["Facility Name"]
}`

func TestNormalizeFlattensAndOrders(t *testing.T) {
	t.Parallel()

	s, err := Normalize(json.RawMessage(facilitySchema))
	require.NoError(t, err)

	require.Equal(t, []string{"Boundary Code", "Capacity", "Facility Name", "Facility Code", "Facility Status"}, s.Columns)
	require.Equal(t, []string{"Capacity", "Facility Name", "Facility Status"}, s.Required)
	require.Equal(t, []string{"Facility Name", "Facility Code"}, s.Unique)
	require.Equal(t, []string{"Boundary Code"}, s.ColumnsToHide)
	require.Equal(t, []string{"Facility Code"}, s.ColumnsToBeFreezed)
	require.Equal(t, map[string]string{"Facility Name": "name needed"}, s.ErrorMessages)
	require.Equal(t, domain.PropertyTypeEnum, s.Properties["Facility Status"].Type)
	require.Equal(t, domain.PropertyTypeNumber, s.Properties["Capacity"].Type)
	require.True(t, s.Properties["Capacity"].IsRequired)
}

func TestResolveSchemaFallsBackAndCaches(t *testing.T) {
	t.Parallel()

	mdms := &stubMDMS{records: map[string]json.RawMessage{"facility": json.RawMessage(facilitySchema)}}
	r := NewResolver(mdms, WithCache(cache.NewMemoryCache(0, time.Minute)))

	s, err := r.ResolveSchema(context.Background(), client.RequestInfo{}, "mz", domain.ResourceTypeFacility, "SMC")
	require.NoError(t, err)
	require.Equal(t, "facility", s.Title)
	require.Equal(t, []string{"facility.SMC", "facility"}, mdms.calls)

	_, err = r.ResolveSchema(context.Background(), client.RequestInfo{}, "mz", domain.ResourceTypeFacility, "")
	require.NoError(t, err)
	require.Equal(t, []string{"facility.SMC", "facility"}, mdms.calls)
}

func TestResolveSchemaAbsent(t *testing.T) {
	t.Parallel()

	r := NewResolver(&stubMDMS{})
	_, err := r.ResolveSchema(context.Background(), client.RequestInfo{}, "mz", domain.ResourceTypeUser, "")

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, domain.CodeValidationSchemaAbsent, appErr.Code)
}
