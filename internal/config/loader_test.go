package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/events"
	"github.com/healthcampaign/project-factory/internal/resource"
)

func TestLoadUsesDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	def := Default()
	require.Equal(t, def.Server.Port, cfg.Server.Port)
	require.Equal(t, def.Database.Host, cfg.Database.Host)
	require.Equal(t, def.Kafka.Topics, cfg.Kafka.Topics)
	require.Equal(t, def.Pipeline, cfg.Pipeline)
	require.Equal(t, def.Endpoints, cfg.Endpoints)
	require.Empty(t, cfg.Kafka.Brokers)
	require.Empty(t, cfg.Redis.URL)
}

func TestLoadReadsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
database:
  host: db.internal
  name: factory
kafka:
  brokers: [k1:9092, k2:9092]
  topics:
    save_resource_details: mz-save-resource-details
pipeline:
  retry_delay: 5s
  poll_attempts: 4
endpoints:
  facilitycreate: facility/v2/bulk/_create
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("PF_DATABASE_PASSWORD", "s3cret")
	t.Setenv("PF_PIPELINE_SETTLE_DELAY", "250ms")
	t.Setenv("PF_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "factory", cfg.Database.DBName)
	require.Equal(t, "s3cret", cfg.Database.Password)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "mz-save-resource-details", cfg.Kafka.Topics.SaveResourceDetails)
	require.Equal(t, events.DefaultTopics().UpdateProcessTrack, cfg.Kafka.Topics.UpdateProcessTrack)
	require.Equal(t, 5*time.Second, cfg.Pipeline.RetryDelay)
	require.Equal(t, 250*time.Millisecond, cfg.Pipeline.SettleDelay)
	require.Equal(t, 4, cfg.Pipeline.PollAttempts)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "facility/v2/bulk/_create", cfg.Endpoints.FacilityCreate)
	require.Equal(t, Default().Endpoints.FacilitySearch, cfg.Endpoints.FacilitySearch)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadAppliesMatchStrategies(t *testing.T) {
	dir := t.TempDir()
	yaml := `
pipeline:
  match_strategies:
    facility: window
    boundaryWithTarget: Equality
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Pipeline.MatchStrategies, 2)

	registry := resource.DefaultRegistry(client.DefaultEndpoints())
	require.NoError(t, cfg.Pipeline.ApplyMatchStrategies(registry))

	facility, err := registry.Get(domain.ResourceTypeFacility)
	require.NoError(t, err)
	require.Equal(t, resource.MatchByWindow, facility.Match)

	target, err := registry.Get(domain.ResourceTypeBoundaryWithTarget)
	require.NoError(t, err)
	require.Equal(t, resource.MatchByEquality, target.Match)

	user, err := registry.Get(domain.ResourceTypeUser)
	require.NoError(t, err)
	require.Equal(t, resource.MatchByCode, user.Match)
}

func TestApplyMatchStrategiesRejectsUnknownValues(t *testing.T) {
	registry := resource.DefaultRegistry(client.DefaultEndpoints())

	err := PipelineConfig{MatchStrategies: map[string]string{"facility": "fuzzy"}}.ApplyMatchStrategies(registry)
	require.ErrorContains(t, err, `unknown match strategy "fuzzy"`)

	err = PipelineConfig{MatchStrategies: map[string]string{"warehouse": "code"}}.ApplyMatchStrategies(registry)
	require.ErrorContains(t, err, `unknown resource type "warehouse"`)

	require.NoError(t, PipelineConfig{}.ApplyMatchStrategies(registry))
}
