package reconcile

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// MatchInput is what a strategy needs to confirm created rows.
type MatchInput struct {
	Created  []domain.Record
	Searched []map[string]any
	Config   resource.Config
	// Actor and CreationStart scope the window strategy.
	Actor         string
	CreationStart time.Time
}

// MatchOutcome is the per-row confirmation result.
type MatchOutcome struct {
	Details     []domain.SheetErrorDetail
	Credentials []domain.Credential
	// PersisterError is set when fewer records were found than submitted.
	PersisterError bool
}

// Strategy confirms which created rows were persisted.
type Strategy interface {
	Match(in MatchInput) MatchOutcome
}

// StrategyFor returns the strategy implementing m.
func StrategyFor(m resource.MatchStrategy) (Strategy, error) {
	switch m {
	case resource.MatchByCode:
		return CodeMatch{}, nil
	case resource.MatchByEquality:
		return EqualityMatch{}, nil
	case resource.MatchByWindow:
		return WindowMatch{}, nil
	}
	return nil, fmt.Errorf("unknown match strategy %q", m)
}

// CodeMatch pairs created and searched records by their code field.
type CodeMatch struct{}

func (CodeMatch) Match(in MatchInput) MatchOutcome {
	byCode := make(map[string]map[string]any, len(in.Searched))
	for _, s := range in.Searched {
		if code := domain.Stringify(s["code"]); code != "" {
			byCode[code] = s
		}
	}

	var out MatchOutcome
	for _, rec := range in.Created {
		code := domain.Stringify(rec.Data["code"])
		if _, ok := byCode[code]; !ok || code == "" {
			out.Details = append(out.Details, domain.SheetErrorDetail{
				Status:       domain.RowStatusNotCreated,
				RowNumber:    rec.RowNumber,
				ErrorDetails: fmt.Sprintf("Record with code %s was not found after creation", code),
			})
			continue
		}
		out.Details = append(out.Details, domain.SheetErrorDetail{
			Status:             domain.RowStatusCreated,
			RowNumber:          rec.RowNumber,
			IsUniqueIdentifier: true,
			UniqueIdentifier:   code,
		})
		user, _ := rec.Data["user"].(map[string]any)
		out.Credentials = append(out.Credentials, domain.Credential{
			RowNumber: rec.RowNumber,
			UserName:  domain.Stringify(user["userName"]),
			Password:  domain.Stringify(user["password"]),
		})
	}
	return out
}

// EqualityMatch pairs each created record with the first searched record
// carrying every submitted field with an equal value. The unique identifier,
// the row marker and stripped fields are ignored. Matched records leave the
// pool.
type EqualityMatch struct{}

func (EqualityMatch) Match(in MatchInput) MatchOutcome {
	uid := in.Config.UniqueIdentifier
	pool := make([]map[string]any, 0, len(in.Searched))
	for _, s := range in.Searched {
		pool = append(pool, normalize(strip(s, in.Config.StripFields)))
	}

	var out MatchOutcome
	for _, rec := range in.Created {
		want := normalize(strip(rec.Data, in.Config.StripFields))
		idx := -1
		for i, candidate := range pool {
			if containsAll(want, candidate, uid) {
				idx = i
				break
			}
		}
		if idx < 0 {
			out.Details = append(out.Details, domain.SheetErrorDetail{
				Status:       domain.RowStatusNotCreated,
				RowNumber:    rec.RowNumber,
				ErrorDetails: "Record was not found after creation",
			})
			continue
		}
		matched := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		out.Details = append(out.Details, domain.SheetErrorDetail{
			Status:             domain.RowStatusCreated,
			RowNumber:          rec.RowNumber,
			IsUniqueIdentifier: uid != "",
			UniqueIdentifier:   domain.Stringify(matched[uid]),
		})
	}
	return out
}

// WindowMatch counts records the actor created since creation began. It
// assumes no other actor creates the same type concurrently.
type WindowMatch struct{}

func (WindowMatch) Match(in MatchInput) MatchOutcome {
	since := in.CreationStart.UnixMilli()
	found := 0
	for _, s := range in.Searched {
		audit, _ := s["auditDetails"].(map[string]any)
		createdTime, _ := audit["createdTime"].(float64)
		if domain.Stringify(audit["createdBy"]) == in.Actor && int64(createdTime) >= since {
			found++
		}
	}

	var out MatchOutcome
	status, msg := domain.RowStatusCreated, ""
	if found < len(in.Created) {
		out.PersisterError = true
		status = domain.RowStatusPersisterError
		msg = fmt.Sprintf("Only %d of %d submitted records were persisted", found, len(in.Created))
	}
	for _, rec := range in.Created {
		out.Details = append(out.Details, domain.SheetErrorDetail{Status: status, RowNumber: rec.RowNumber, ErrorDetails: msg})
	}
	return out
}

// VerifyExisting checks rows claiming to exist against searched records by
// unique identifier. With MatchEachKey every shared field must agree.
func VerifyExisting(records []domain.Record, searched []map[string]any, cfg resource.Config) []domain.SheetErrorDetail {
	uid := cfg.UniqueIdentifier
	byID := make(map[string]map[string]any, len(searched))
	for _, s := range searched {
		if id := domain.Stringify(s[uid]); id != "" {
			byID[id] = normalize(strip(s, cfg.StripFields))
		}
	}

	details := make([]domain.SheetErrorDetail, 0, len(records))
	for _, rec := range records {
		id := domain.Stringify(rec.Data[uid])
		found, ok := byID[id]
		if !ok {
			details = append(details, domain.SheetErrorDetail{
				Status:       domain.RowStatusInvalid,
				RowNumber:    rec.RowNumber,
				ErrorDetails: fmt.Sprintf("Data with %s %s not found in searched data.", uid, id),
			})
			continue
		}
		if cfg.MatchEachKey {
			if msg := mismatches(normalize(strip(rec.Data, cfg.StripFields)), found, uid); msg != "" {
				details = append(details, domain.SheetErrorDetail{
					Status:       domain.RowStatusMismatching,
					RowNumber:    rec.RowNumber,
					ErrorDetails: msg,
				})
				continue
			}
		}
		details = append(details, domain.SheetErrorDetail{
			Status:             domain.RowStatusValid,
			RowNumber:          rec.RowNumber,
			IsUniqueIdentifier: true,
			UniqueIdentifier:   id,
		})
	}
	return details
}

func mismatches(want, found map[string]any, uid string) string {
	var parts []string
	for _, key := range sortedKeys(want) {
		if key == uid || key == domain.RowNumberKey {
			continue
		}
		got, ok := found[key]
		if !ok {
			continue
		}
		if !reflect.DeepEqual(want[key], got) {
			parts = append(parts, fmt.Sprintf(`Value mismatch for key "%s. Expected: "%s", Found: "%s"`, key, render(want[key]), render(got)))
		}
	}
	return strings.Join(parts, "; ")
}

// containsAll reports whether b holds every key of a with an equal value,
// ignoring uid and the row marker.
func containsAll(a, b map[string]any, uid string) bool {
	for key, av := range a {
		if key == uid || key == domain.RowNumberKey {
			continue
		}
		bv, ok := b[key]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func strip(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// normalize round-trips m through JSON so sheet-built and decoded values
// compare with the same types.
func normalize(m map[string]any) map[string]any {
	raw, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return m
	}
	return out
}

func render(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
	return domain.Stringify(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
