package bulk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/metrics"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// ActivityTypeCreate labels activities recorded by bulk creation.
const ActivityTypeCreate = "create"

// Poster sends a JSON request to a downstream service.
type Poster interface {
	PostJSON(ctx context.Context, path string, query url.Values, body, target any) (*client.Response, error)
	URL(path string, query url.Values) string
}

// RetryPolicy bounds the attempts made per chunk.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy allows 7 attempts, 30 seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 7, Delay: 30 * time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))
}

// DefaultSettleDelay is the wait between the last create call and reconciliation.
const DefaultSettleDelay = 5 * time.Second

// Params carries the job a bulk create belongs to.
type Params struct {
	Resource    domain.ResourceDetails
	RequestInfo client.RequestInfo
}

// Result lists every attempt made, in order.
type Result struct {
	Activities []domain.Activity
	// CreationStart is when the first chunk was sent.
	CreationStart time.Time
}

// Creator sends records downstream in sequential chunks.
type Creator struct {
	poster Poster
	policy RetryPolicy
	settle time.Duration
	now    func() time.Time
	logger *logrus.Entry
}

// Option configures a Creator.
type Option func(*Creator)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Creator) { c.policy = p }
}

// WithSettleDelay overrides DefaultSettleDelay. Zero disables the wait.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Creator) { c.settle = d }
}

// WithClock sets the time source used for activity audit stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Creator) {
		if entry != nil {
			c.logger = entry
		}
	}
}

// NewCreator builds a Creator.
func NewCreator(poster Poster, opts ...Option) *Creator {
	c := &Creator{
		poster: poster,
		policy: DefaultRetryPolicy,
		settle: DefaultSettleDelay,
		now:    time.Now,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateInBatches posts records in chunks of cfg.CreateBulk.Limit. A chunk
// that exhausts its retries aborts the whole call; activities recorded up to
// that point are still returned. After the last chunk the creator waits the
// settle delay so downstream reads see the new records.
func (c *Creator) CreateInBatches(ctx context.Context, records []domain.Record, cfg resource.Config, p Params) (Result, error) {
	result := Result{CreationStart: c.now()}
	if !cfg.CanCreate() {
		return result, domain.NewAppError(http.StatusBadRequest, domain.CodeCreateNotSupported, "Create not supported",
			fmt.Sprintf("resource type %s is validate only", cfg.Type))
	}
	if len(records) == 0 {
		return result, nil
	}

	limit := cfg.CreateBulk.Limit
	if limit <= 0 {
		limit = len(records)
	}
	m := metrics.Get()
	log := c.logger.WithFields(logrus.Fields{
		"resource_id":   p.Resource.ID,
		"resource_type": cfg.Type,
		"tenant_id":     p.Resource.TenantID,
	})

	for start, chunkNo := 0, 1; start < len(records); start, chunkNo = start+limit, chunkNo+1 {
		end := start + limit
		if end > len(records) {
			end = len(records)
		}
		chunk := make([]map[string]any, 0, end-start)
		for _, rec := range records[start:end] {
			chunk = append(chunk, rec.Data)
		}
		envelope := map[string]any{"RequestInfo": p.RequestInfo}
		envelope[cfg.CreateBulk.BodyKey] = chunk

		attempt := 0
		err := retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
			attempt++
			resp, err := c.poster.PostJSON(ctx, cfg.CreateBulk.Path, nil, envelope, nil)
			result.Activities = append(result.Activities, c.activity(p.Resource, cfg, envelope, resp, err))
			m.CreateAttempts.WithLabelValues(string(cfg.Type), metrics.Result(err)).Inc()
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{"chunk": chunkNo, "attempt": attempt}).Warn("bulk create attempt failed")
				return retry.RetryableError(err)
			}
			return nil
		})
		m.CreateChunks.WithLabelValues(string(cfg.Type), metrics.Result(err)).Inc()
		if err != nil {
			return result, fmt.Errorf("bulk create of chunk %d failed after %d attempts: %w", chunkNo, attempt, err)
		}
		log.WithFields(logrus.Fields{"chunk": chunkNo, "size": len(chunk), "attempt": attempt}).Info("bulk create chunk sent")
	}

	if err := sleep(ctx, c.settle); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Creator) activity(res domain.ResourceDetails, cfg resource.Config, request any, resp *client.Response, err error) domain.Activity {
	status := http.StatusInternalServerError
	var response any
	if resp != nil {
		status = resp.StatusCode
		if len(resp.Body) > 0 {
			response = resp.Body
		}
	}
	var se *client.StatusError
	if err != nil && response == nil {
		if errors.As(err, &se) {
			response = map[string]any{"error": se.Body}
		} else {
			response = map[string]any{"error": err.Error()}
		}
	}
	return domain.NewActivity(res, ActivityTypeCreate, c.poster.URL(cfg.CreateBulk.Path, nil), request, response, status, c.now())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
