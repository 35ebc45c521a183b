package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/metrics"
)

type failingEmitter struct{ calls int }

func (f *failingEmitter) Emit(context.Context, string, any) error {
	f.calls++
	return errors.New("broker unavailable")
}

var _ Emitter = (*failingEmitter)(nil)

func TestResourceUpdatedEmitsDetailsThenActivities(t *testing.T) {
	t.Parallel()

	mem := NewMemoryEmitter(nil)
	p := NewPublisher(mem, DefaultTopics(), 0, nil)

	rd := domain.ResourceDetails{TenantID: "mz", Status: domain.ResourceStatusCompleted}
	p.ResourceUpdated(context.Background(), rd, []domain.Activity{{TenantID: "mz", StatusCode: 200}})

	require.Equal(t, []string{"update-resource-details", "create-resource-activity"}, mem.Topics())

	var body struct {
		ResourceDetails domain.ResourceDetails `json:"ResourceDetails"`
	}
	require.NoError(t, json.Unmarshal(mem.Messages()[0].Payload, &body))
	require.Equal(t, domain.ResourceStatusCompleted, body.ResourceDetails.Status)
}

func TestResourceUpdatedWithoutActivities(t *testing.T) {
	t.Parallel()

	mem := NewMemoryEmitter(nil)
	NewPublisher(mem, DefaultTopics(), 0, nil).ResourceUpdated(context.Background(), domain.ResourceDetails{}, nil)
	require.Equal(t, []string{"update-resource-details"}, mem.Topics())
}

func TestEmitFailuresAreNotFatal(t *testing.T) {
	t.Parallel()

	f := &failingEmitter{}
	p := NewPublisher(f, DefaultTopics(), 0, nil)
	p.ResourceUpdated(context.Background(), domain.ResourceDetails{}, []domain.Activity{{}})
	p.ProcessTrack(context.Background(), domain.ProcessTrack{}, true)
	require.Equal(t, 3, f.calls)
}

func TestDeliveryReporterCountsUndeliveredMessages(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	report := deliveryReporter(logger.WithField("component", "kafka"))
	counter := metrics.Get().Emits.WithLabelValues("pf-delivery-test", metrics.ResultUndelivered)
	before := testutil.ToFloat64(counter)

	batch := []kafka.Message{{Topic: "pf-delivery-test"}, {Topic: "pf-delivery-test"}}
	report(batch, nil)
	require.Empty(t, hook.AllEntries())
	require.Equal(t, before, testutil.ToFloat64(counter))

	report(batch, errors.New("leader not available"))
	require.Len(t, hook.AllEntries(), 2)
	require.Equal(t, "pf-delivery-test", hook.LastEntry().Data["topic"])
	require.Equal(t, before+2, testutil.ToFloat64(counter))

	require.NotPanics(t, func() { deliveryReporter(nil)(batch, errors.New("closed")) })
}
