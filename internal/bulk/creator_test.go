package bulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-password/password"
	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

type createServer struct {
	mu       sync.Mutex
	sizes    []int
	failures int
}

func (s *createServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Facilities []map[string]any `json:"Facilities"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failures > 0 {
			s.failures--
			http.Error(w, `{"Errors":[{"code":"DB_DOWN"}]}`, http.StatusBadGateway)
			return
		}
		s.sizes = append(s.sizes, len(body.Facilities))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ResponseInfo":{"status":"successful"}}`))
	}
}

func records(n int) []domain.Record {
	out := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Record{RowNumber: i + 2, Data: map[string]any{"name": i}})
	}
	return out
}

func facilityConfig(path string, limit int) resource.Config {
	cfg := resource.FacilityConfig(client.DefaultEndpoints())
	cfg.CreateBulk = &resource.CreateBulkContract{Path: path, Limit: limit, BodyKey: "Facilities"}
	return cfg
}

func fastCreator(c *client.Client, attempts int) *Creator {
	return NewCreator(c,
		WithRetryPolicy(RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond}),
		WithSettleDelay(0),
	)
}

func TestCreateInBatchesChunksByLimit(t *testing.T) {
	t.Parallel()

	srv := &createServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	res, err := fastCreator(client.New(ts.URL), 7).CreateInBatches(context.Background(), records(5), facilityConfig("/facility/v1/bulk/_create", 2), Params{
		Resource: domain.ResourceDetails{TenantID: "mz"},
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 1}, srv.sizes)
	require.Len(t, res.Activities, 3)
	require.Equal(t, http.StatusOK, res.Activities[0].StatusCode)
	require.Equal(t, ts.URL+"/facility/v1/bulk/_create", res.Activities[0].URL)
	require.Equal(t, "mz", res.Activities[0].TenantID)
}

func TestCreateInBatchesRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	srv := &createServer{failures: 2}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	res, err := fastCreator(client.New(ts.URL), 7).CreateInBatches(context.Background(), records(1), facilityConfig("/create", 10), Params{})
	require.NoError(t, err)
	require.Equal(t, []int{1}, srv.sizes)
	require.Len(t, res.Activities, 3)
	require.Equal(t, http.StatusBadGateway, res.Activities[0].StatusCode)
	require.Equal(t, http.StatusBadGateway, res.Activities[1].StatusCode)
	require.Equal(t, http.StatusOK, res.Activities[2].StatusCode)
}

func TestCreateInBatchesFailsAfterExhaustingAttempts(t *testing.T) {
	t.Parallel()

	srv := &createServer{failures: 100}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	res, err := fastCreator(client.New(ts.URL), 3).CreateInBatches(context.Background(), records(3), facilityConfig("/create", 2), Params{})
	require.Error(t, err)
	require.True(t, client.IsStatus(err, http.StatusBadGateway))
	require.Len(t, res.Activities, 3, "one activity per attempt of the first chunk")
	require.Empty(t, srv.sizes)
}

func TestCreateInBatchesRejectsValidateOnlyTypes(t *testing.T) {
	t.Parallel()

	_, err := fastCreator(client.New("http://unused"), 1).CreateInBatches(context.Background(), records(1), resource.TargetConfig(), Params{})
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, domain.CodeCreateNotSupported, appErr.Code)
}

type stubIDs struct{ next int }

func (s *stubIDs) Generate(_ context.Context, _ client.RequestInfo, _, _, _ string, count int) ([]string, error) {
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s.next++
		out = append(out, "EMP-"+string(rune('A'+s.next-1)))
	}
	return out, nil
}

var _ IDGenerator = (*stubIDs)(nil)

func TestAssignUserCredentials(t *testing.T) {
	t.Parallel()

	recs := []domain.Record{
		{RowNumber: 2, Data: map[string]any{"user": map[string]any{"name": "A"}}},
		{RowNumber: 3, Data: map[string]any{"code": "KEEP", "user": map[string]any{"name": "B", "userName": "KEEP"}}},
		{RowNumber: 4, Data: map[string]any{"user": map[string]any{"name": "C"}}},
	}
	cfg := resource.UserConfig(client.DefaultEndpoints())

	err := AssignUserCredentials(context.Background(), &stubIDs{}, password.NewMockGenerator("pw@12Abcde", nil), client.RequestInfo{}, "mz", cfg, recs)
	require.NoError(t, err)

	require.Equal(t, "EMP-A", recs[0].Data["code"])
	require.Equal(t, "EMP-A", recs[0].Data["user"].(map[string]any)["userName"])
	require.Equal(t, "KEEP", recs[1].Data["code"])
	require.Equal(t, "EMP-B", recs[2].Data["code"])
	require.Equal(t, "pw@12Abcde", recs[1].Data["user"].(map[string]any)["password"])
}
