package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// pagedServer serves items under key, honoring limit and offset.
func pagedServer(t *testing.T, key string, items []map[string]any, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + limit
		if offset > len(items) {
			offset = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{key: items[offset:end]})
	}))
}

func items(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{"id": "F-" + strconv.Itoa(i)})
	}
	return out
}

func TestPerformSearchDrainTerminates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total, limit, calls int
	}{
		{total: 5, limit: 2, calls: 3},
		{total: 4, limit: 2, calls: 3},
		{total: 0, limit: 2, calls: 1},
		{total: 1, limit: 50, calls: 1},
	}
	for _, tc := range cases {
		calls := 0
		ts := pagedServer(t, "Facilities", items(tc.total), &calls)
		got, err := PerformSearch(context.Background(), client.New(ts.URL), SearchRequest{
			Path: "/facility/v1/_search", Limit: tc.limit, ResponseKey: "Facilities",
		})
		ts.Close()
		require.NoError(t, err)
		require.Len(t, got, tc.total)
		require.Equal(t, tc.calls, calls, "total=%d limit=%d", tc.total, tc.limit)
	}
}

func facilityCfg() resource.Config {
	return resource.FacilityConfig(client.DefaultEndpoints())
}

func TestEqualityMatchDrainsPool(t *testing.T) {
	t.Parallel()

	created := []domain.Record{
		{RowNumber: 2, Data: map[string]any{"tenantId": "mz", "name": "Alpha", "storageCapacity": float64(10), "address": map[string]any{"tenantId": "mz"}}},
		{RowNumber: 3, Data: map[string]any{"tenantId": "mz", "name": "Alpha", "storageCapacity": float64(10)}},
		{RowNumber: 4, Data: map[string]any{"tenantId": "mz", "name": "Gamma"}},
	}
	searched := []map[string]any{
		{"id": "F-1", "tenantId": "mz", "name": "Alpha", "storageCapacity": float64(10), "address": map[string]any{"id": "a1"}},
		{"id": "F-2", "tenantId": "mz", "name": "Alpha", "storageCapacity": float64(10)},
	}

	out := EqualityMatch{}.Match(MatchInput{Created: created, Searched: searched, Config: facilityCfg()})
	require.Equal(t, []domain.SheetErrorDetail{
		{Status: domain.RowStatusCreated, RowNumber: 2, IsUniqueIdentifier: true, UniqueIdentifier: "F-1"},
		{Status: domain.RowStatusCreated, RowNumber: 3, IsUniqueIdentifier: true, UniqueIdentifier: "F-2"},
		{Status: domain.RowStatusNotCreated, RowNumber: 4, ErrorDetails: "Record was not found after creation"},
	}, out.Details)
	require.False(t, out.PersisterError)
}

func TestEqualityMatchRequiresEverySubmittedField(t *testing.T) {
	t.Parallel()

	created := []domain.Record{{RowNumber: 2, Data: map[string]any{
		"tenantId": "mz", "name": "Store A", "usage": "Storage", "storageCapacity": 10, "isPermanent": true,
	}}}
	cases := map[string][]map[string]any{
		"missing fields":   {{"id": "F-1", "tenantId": "mz", "name": "Store A"}},
		"tenant only":      {{"id": "F-9", "tenantId": "mz"}},
		"different values": {{"id": "F-2", "tenantId": "mz", "name": "Store A", "usage": "Storage", "storageCapacity": 20, "isPermanent": true}},
	}
	for name, searched := range cases {
		out := EqualityMatch{}.Match(MatchInput{Created: created, Searched: searched, Config: facilityCfg()})
		require.Equal(t, []domain.SheetErrorDetail{
			{Status: domain.RowStatusNotCreated, RowNumber: 2, ErrorDetails: "Record was not found after creation"},
		}, out.Details, name)
	}

	full := []map[string]any{
		{"id": "F-9", "tenantId": "mz"},
		{"id": "F-1", "tenantId": "mz", "name": "Store A", "usage": "Storage", "storageCapacity": float64(10), "isPermanent": true, "auditDetails": map[string]any{"createdBy": "u1"}},
	}
	out := EqualityMatch{}.Match(MatchInput{Created: created, Searched: full, Config: facilityCfg()})
	require.Equal(t, domain.RowStatusCreated, out.Details[0].Status)
	require.Equal(t, "F-1", out.Details[0].UniqueIdentifier)
}

func TestCodeMatchProducesCredentials(t *testing.T) {
	t.Parallel()

	created := []domain.Record{
		{RowNumber: 2, Data: map[string]any{"code": "EMP-1", "user": map[string]any{"userName": "EMP-1", "password": "pw1"}}},
		{RowNumber: 3, Data: map[string]any{"code": "EMP-2", "user": map[string]any{"userName": "EMP-2", "password": "pw2"}}},
	}
	out := CodeMatch{}.Match(MatchInput{Created: created, Searched: []map[string]any{{"code": "EMP-1"}}})

	require.Equal(t, domain.RowStatusCreated, out.Details[0].Status)
	require.Equal(t, "EMP-1", out.Details[0].UniqueIdentifier)
	require.Equal(t, domain.RowStatusNotCreated, out.Details[1].Status)
	require.Equal(t, []domain.Credential{{RowNumber: 2, UserName: "EMP-1", Password: "pw1"}}, out.Credentials)
}

func TestWindowMatchFlagsPersisterError(t *testing.T) {
	t.Parallel()

	start := time.UnixMilli(1_700_000_000_000)
	searched := []map[string]any{
		{"auditDetails": map[string]any{"createdBy": "actor", "createdTime": float64(start.UnixMilli())}},
		{"auditDetails": map[string]any{"createdBy": "other", "createdTime": float64(start.UnixMilli() + 5)}},
		{"auditDetails": map[string]any{"createdBy": "actor", "createdTime": float64(start.UnixMilli() - 1)}},
	}
	created := []domain.Record{{RowNumber: 2}, {RowNumber: 3}}

	out := WindowMatch{}.Match(MatchInput{Created: created, Searched: searched, Actor: "actor", CreationStart: start})
	require.True(t, out.PersisterError)
	require.Equal(t, domain.RowStatusPersisterError, out.Details[1].Status)
	require.Equal(t, "Only 1 of 2 submitted records were persisted", out.Details[1].ErrorDetails)

	out = WindowMatch{}.Match(MatchInput{Created: created[:1], Searched: searched, Actor: "actor", CreationStart: start})
	require.False(t, out.PersisterError)
	require.Equal(t, domain.RowStatusCreated, out.Details[0].Status)
}

func TestVerifyExistingMessages(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		{RowNumber: 2, Data: map[string]any{"id": "F-1", "name": "Alpha", "storageCapacity": float64(10)}},
		{RowNumber: 3, Data: map[string]any{"id": "F-2", "name": "Beta", "isPermanent": true}},
		{RowNumber: 4, Data: map[string]any{"id": "F-9", "name": "Zeta"}},
	}
	searched := []map[string]any{
		{"id": "F-1", "name": "Alpha", "storageCapacity": float64(10), "usage": "Storage"},
		{"id": "F-2", "name": "Bravo", "isPermanent": false},
	}

	details := VerifyExisting(records, searched, facilityCfg())
	require.Equal(t, []domain.SheetErrorDetail{
		{Status: domain.RowStatusValid, RowNumber: 2, IsUniqueIdentifier: true, UniqueIdentifier: "F-1"},
		{Status: domain.RowStatusMismatching, RowNumber: 3,
			ErrorDetails: `Value mismatch for key "isPermanent. Expected: "true", Found: "false"; Value mismatch for key "name. Expected: "Beta", Found: "Bravo"`},
		{Status: domain.RowStatusInvalid, RowNumber: 4, ErrorDetails: "Data with id F-9 not found in searched data."},
	}, details)
}

func TestConfirmCreationSearchesByKey(t *testing.T) {
	t.Parallel()

	var gotCodes string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCodes = r.URL.Query().Get("codes")
		_ = json.NewEncoder(w).Encode(map[string]any{"Employees": []map[string]any{{"code": "EMP-1"}, {"code": "EMP-2"}}})
	}))
	defer ts.Close()

	cfg := resource.UserConfig(client.DefaultEndpoints())
	created := []domain.Record{
		{RowNumber: 2, Data: map[string]any{"code": "EMP-1"}},
		{RowNumber: 3, Data: map[string]any{"code": "EMP-2"}},
	}
	out, err := NewReconciler(client.New(ts.URL), nil).ConfirmCreation(context.Background(), Job{TenantID: "mz"}, cfg, created, time.Now())
	require.NoError(t, err)
	require.Equal(t, "EMP-1,EMP-2", gotCodes)
	require.Len(t, out.Credentials, 2)
	for _, d := range out.Details {
		require.Equal(t, domain.RowStatusCreated, d.Status)
	}
}
