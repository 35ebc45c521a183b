package mapping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
)

// Poll defaults.
const (
	DefaultPollAttempts = 30
	DefaultPollInterval = 20 * time.Second
)

// ResourceLookup searches resource jobs.
type ResourceLookup interface {
	Search(ctx context.Context, criteria domain.ResourceSearchCriteria) ([]domain.ResourceDetails, error)
}

// Poller waits for resource jobs to reach a terminal status.
type Poller struct {
	lookup   ResourceLookup
	attempts int
	interval time.Duration
	logger   *logrus.Entry
}

// NewPoller builds a Poller. Non-positive values use the defaults.
func NewPoller(lookup ResourceLookup, attempts int, interval time.Duration, logger *logrus.Entry) *Poller {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Poller{lookup: lookup, attempts: attempts, interval: interval, logger: logger}
}

type pendingError struct {
	ids []string
}

func (e *pendingError) Error() string {
	return "resources still processing: " + strings.Join(e.ids, ", ")
}

// WaitForResources polls until every id is completed. An invalid or failed
// resource aborts immediately; running out of attempts returns a
// RESOURCE_POLL_TIMEOUT error naming the ids still incomplete.
func (p *Poller) WaitForResources(ctx context.Context, tenantID string, ids []string) ([]domain.ResourceDetails, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Invalid resource id",
				fmt.Sprintf("resource id %q is not a uuid", id))
		}
		parsed = append(parsed, u)
	}

	var (
		done    []domain.ResourceDetails
		attempt int
	)
	backoff := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewConstant(p.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		found, err := p.lookup.Search(ctx, domain.ResourceSearchCriteria{TenantID: tenantID, IDs: parsed, Limit: len(parsed)})
		if err != nil {
			return fmt.Errorf("resource status lookup failed: %w", err)
		}
		byID := make(map[string]domain.ResourceDetails, len(found))
		for _, rd := range found {
			byID[rd.ID.String()] = rd
		}

		done = done[:0]
		var pending []string
		for _, id := range parsed {
			rd, ok := byID[id.String()]
			switch {
			case !ok:
				pending = append(pending, id.String())
			case rd.Status == domain.ResourceStatusInvalid || rd.Status == domain.ResourceStatusFailed:
				return domain.NewAppError(http.StatusBadRequest, domain.CodeResourceInvalid, "Resource not usable",
					fmt.Sprintf("resource %s of type %s ended %s", rd.ID, rd.Type, rd.Status))
			case rd.Status == domain.ResourceStatusCompleted:
				done = append(done, rd)
			default:
				pending = append(pending, id.String())
			}
		}
		if len(pending) > 0 {
			p.logger.WithFields(logrus.Fields{"attempt": attempt, "pending": len(pending)}).Debug("waiting for resources")
			return retry.RetryableError(&pendingError{ids: pending})
		}
		return nil
	})

	var pe *pendingError
	if errors.As(err, &pe) {
		sort.Strings(pe.ids)
		return nil, domain.NewAppError(http.StatusRequestTimeout, domain.CodeResourcePollTimeout, "Resources not ready",
			fmt.Sprintf("resources still incomplete after %d attempts: %s", attempt, strings.Join(pe.ids, ", ")))
	}
	if err != nil {
		return nil, err
	}
	return done, nil
}
