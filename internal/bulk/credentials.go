package bulk

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-password/password"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// IDGenerator issues formatted ids from the id generation service.
type IDGenerator interface {
	Generate(ctx context.Context, info client.RequestInfo, tenantID, idName, format string, count int) ([]string, error)
}

// PasswordGenerator produces login passwords.
type PasswordGenerator interface {
	Generate(length, numDigits, numSymbols int, noUpper, allowRepeat bool) (string, error)
}

// NewPasswordGenerator returns a generator restricted to symbols the user
// service accepts.
func NewPasswordGenerator() (PasswordGenerator, error) {
	g, err := password.NewGenerator(&password.GeneratorInput{Symbols: "@#"})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// AssignUserCredentials gives every record without a code a generated code,
// reused as the user name, and a fresh password. It is a no-op for configs
// without code generation.
func AssignUserCredentials(ctx context.Context, ids IDGenerator, passwords PasswordGenerator, info client.RequestInfo, tenantID string, cfg resource.Config, records []domain.Record) error {
	if cfg.Codes == nil {
		return nil
	}
	var pending []int
	for i, rec := range records {
		if domain.Stringify(rec.Data["code"]) == "" {
			pending = append(pending, i)
		}
	}

	var codes []string
	if len(pending) > 0 {
		var err error
		codes, err = ids.Generate(ctx, info, tenantID, cfg.Codes.IDName, cfg.Codes.Format, len(pending))
		if err != nil {
			return fmt.Errorf("failed to generate user codes: %w", err)
		}
		if len(codes) < len(pending) {
			return fmt.Errorf("id generation returned %d codes, want %d", len(codes), len(pending))
		}
	}

	for n, i := range pending {
		records[i].Data["code"] = codes[n]
	}
	for _, rec := range records {
		user, ok := rec.Data["user"].(map[string]any)
		if !ok {
			user = map[string]any{}
			rec.Data["user"] = user
		}
		if domain.Stringify(user["userName"]) == "" {
			user["userName"] = rec.Data["code"]
		}
		if domain.Stringify(user["password"]) == "" {
			pw, err := passwords.Generate(10, 2, 1, false, true)
			if err != nil {
				return fmt.Errorf("failed to generate password: %w", err)
			}
			user["password"] = pw
		}
	}
	return nil
}
