package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/metrics"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// Reconciler re-queries downstream services to confirm submitted rows.
type Reconciler struct {
	searcher Searcher
	logger   *logrus.Entry
}

// NewReconciler builds a Reconciler.
func NewReconciler(searcher Searcher, logger *logrus.Entry) *Reconciler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reconciler{searcher: searcher, logger: logger}
}

// Job identifies the caller of a reconciliation.
type Job struct {
	TenantID    string
	RequestInfo client.RequestInfo
}

// ConfirmCreation searches for the created records and applies cfg.Match.
func (r *Reconciler) ConfirmCreation(ctx context.Context, job Job, cfg resource.Config, created []domain.Record, creationStart time.Time) (MatchOutcome, error) {
	if len(created) == 0 {
		return MatchOutcome{}, nil
	}
	strategy, err := StrategyFor(cfg.Match)
	if err != nil {
		return MatchOutcome{}, err
	}

	var values []string
	if cfg.SearchKey != "" {
		values = fieldValues(created, cfg.SearchKey)
	}
	searched, err := r.search(ctx, job, cfg, cfg.SearchKey, values)
	if err != nil {
		return MatchOutcome{}, err
	}

	out := strategy.Match(MatchInput{
		Created:       created,
		Searched:      searched,
		Config:        cfg,
		Actor:         job.RequestInfo.ActorUUID(),
		CreationStart: creationStart,
	})
	countStatuses(cfg.Type, out.Details)

	r.logger.WithFields(logrus.Fields{
		"resource_type":   cfg.Type,
		"tenant_id":       job.TenantID,
		"submitted":       len(created),
		"searched":        len(searched),
		"persister_error": out.PersisterError,
	}).Info("creation reconciled")
	return out, nil
}

// Verify looks up rows claiming to exist by their unique identifier.
func (r *Reconciler) Verify(ctx context.Context, job Job, cfg resource.Config, records []domain.Record) ([]domain.SheetErrorDetail, error) {
	if len(records) == 0 {
		return nil, nil
	}
	searched, err := r.search(ctx, job, cfg, cfg.UniqueIdentifier, fieldValues(records, cfg.UniqueIdentifier))
	if err != nil {
		return nil, err
	}
	details := VerifyExisting(records, searched, cfg)
	countStatuses(cfg.Type, details)
	return details, nil
}

func (r *Reconciler) search(ctx context.Context, job Job, cfg resource.Config, field string, values []string) ([]map[string]any, error) {
	if cfg.Search == nil {
		return nil, fmt.Errorf("resource type %s has no search contract", cfg.Type)
	}
	query, body := cfg.Search.Build(job.TenantID, field, values)
	return PerformSearch(ctx, r.searcher, SearchRequest{
		Path:        cfg.Search.Path,
		Limit:       cfg.Search.Limit,
		ResponseKey: cfg.Search.ResponseKey,
		Query:       query,
		Body:        body,
		RequestInfo: job.RequestInfo,
	})
}

func fieldValues(records []domain.Record, field string) []string {
	seen := make(map[string]bool, len(records))
	var values []string
	for _, rec := range records {
		v := domain.Stringify(rec.Data[field])
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

func countStatuses(t domain.ResourceType, details []domain.SheetErrorDetail) {
	m := metrics.Get()
	for _, d := range details {
		m.RowStatuses.WithLabelValues(string(t), string(d.Status)).Inc()
	}
}
