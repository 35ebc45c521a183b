package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
)

// DefaultUserCheckBatch is the number of mobile numbers sent per lookup.
const DefaultUserCheckBatch = 50

// MobileNumberChecker reports which mobile numbers are already registered.
type MobileNumberChecker interface {
	ExistingMobileNumbers(ctx context.Context, info client.RequestInfo, tenantID string, numbers []string) ([]string, error)
}

// UserValidator rejects user rows whose mobile number is already taken.
type UserValidator struct {
	individuals MobileNumberChecker
	batchSize   int
	logger      *logrus.Entry
}

// NewUserValidator builds a UserValidator. A non-positive batchSize uses the default.
func NewUserValidator(individuals MobileNumberChecker, batchSize int, logger *logrus.Entry) *UserValidator {
	if batchSize <= 0 {
		batchSize = DefaultUserCheckBatch
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserValidator{individuals: individuals, batchSize: batchSize, logger: logger}
}

// MatchUserValidation returns an INVALID entry for every record whose mobile
// number repeats within the sheet or already exists downstream.
func (u *UserValidator) MatchUserValidation(ctx context.Context, info client.RequestInfo, tenantID string, records []domain.Record) ([]domain.SheetErrorDetail, error) {
	var details []domain.SheetErrorDetail

	rowsByNumber := make(map[string][]int)
	var numbers []string
	for _, rec := range records {
		number := MobileNumber(rec)
		if number == "" {
			continue
		}
		if first, seen := rowsByNumber[number]; seen {
			details = append(details, domain.SheetErrorDetail{
				Status:       domain.RowStatusInvalid,
				RowNumber:    rec.RowNumber,
				ErrorDetails: fmt.Sprintf("Duplicate mobileNumber %s, first seen at row %d", number, first[0]),
			})
		} else {
			numbers = append(numbers, number)
		}
		rowsByNumber[number] = append(rowsByNumber[number], rec.RowNumber)
	}

	for start := 0; start < len(numbers); start += u.batchSize {
		end := start + u.batchSize
		if end > len(numbers) {
			end = len(numbers)
		}
		existing, err := u.individuals.ExistingMobileNumbers(ctx, info, tenantID, numbers[start:end])
		if err != nil {
			return nil, fmt.Errorf("mobile number check failed: %w", err)
		}
		for _, number := range existing {
			for _, row := range rowsByNumber[number] {
				details = append(details, domain.SheetErrorDetail{
					Status:       domain.RowStatusInvalid,
					RowNumber:    row,
					ErrorDetails: fmt.Sprintf("User with mobileNumber %s already exists", number),
				})
			}
		}
	}

	u.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"checked":   len(numbers),
		"invalid":   len(details),
	}).Info("user mobile numbers checked")
	return details, nil
}

// MobileNumber extracts user.mobileNumber from a converted user record.
func MobileNumber(rec domain.Record) string {
	user, ok := rec.Data["user"].(map[string]any)
	if !ok {
		return ""
	}
	return domain.Stringify(user["mobileNumber"])
}
