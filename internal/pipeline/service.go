package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/bulk"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/convert"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/events"
	"github.com/healthcampaign/project-factory/internal/localization"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/metrics"
	"github.com/healthcampaign/project-factory/internal/reconcile"
	"github.com/healthcampaign/project-factory/internal/resource"
	"github.com/healthcampaign/project-factory/internal/sheet"
	"github.com/healthcampaign/project-factory/internal/validation"
)

// Keys read from ResourceDetails.additionalDetails.
const (
	DetailFileType     = "fileType"
	DetailCampaignType = "campaignType"
	DetailSummary      = "summary"

	FileTypeGeoJSON = "geojson"
)

// ProcessedFileModule is the file-store module annotated workbooks go to.
const ProcessedFileModule = "HCM-ADMIN-CONSOLE-SERVER"

// SheetReader loads uploaded files as tables.
type SheetReader interface {
	ReadSheet(ctx context.Context, tenantID, fileStoreID, sheetKey string) (sheet.Table, error)
	ReadTargetSheets(ctx context.Context, tenantID, fileStoreID string, opts sheet.TargetOptions) ([]sheet.Table, error)
	ReadGeoJSON(ctx context.Context, tenantID, fileStoreID string) (sheet.Table, error)
}

// FileStore downloads originals and stores annotated copies.
type FileStore interface {
	Fetch(ctx context.Context, tenantID, fileStoreID string) ([]byte, error)
	Upload(ctx context.Context, tenantID, module, fileName string, data []byte) (string, error)
}

// SchemaResolver returns the validation schema for a resource type.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, info client.RequestInfo, tenantID string, resourceType domain.ResourceType, campaignType string) (domain.Schema, error)
}

// RowValidator validates one table.
type RowValidator interface {
	Validate(ctx context.Context, table sheet.Table, schema domain.Schema, bcfg validation.BoundaryValidationConfig) (validation.Result, error)
}

// UserChecker rejects user rows clashing with registered individuals.
type UserChecker interface {
	MatchUserValidation(ctx context.Context, info client.RequestInfo, tenantID string, records []domain.Record) ([]domain.SheetErrorDetail, error)
}

// BulkCreator creates records downstream.
type BulkCreator interface {
	CreateInBatches(ctx context.Context, records []domain.Record, cfg resource.Config, p bulk.Params) (bulk.Result, error)
}

// Reconciler confirms created records and verifies existing ones.
type Reconciler interface {
	ConfirmCreation(ctx context.Context, job reconcile.Job, cfg resource.Config, created []domain.Record, creationStart time.Time) (reconcile.MatchOutcome, error)
	Verify(ctx context.Context, job reconcile.Job, cfg resource.Config, records []domain.Record) ([]domain.SheetErrorDetail, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Registry   *resource.Registry
	Reader     SheetReader
	Files      FileStore
	Schemas    SchemaResolver
	Validator  RowValidator
	Users      UserChecker
	Creator    BulkCreator
	Reconciler Reconciler
	IDs        bulk.IDGenerator
	Passwords  bulk.PasswordGenerator
	Publisher  *events.Publisher
	Localizer  *localization.Localizer
	Logger     *logrus.Entry
	Now        func() time.Time
}

// Service runs resource jobs from acceptance to a terminal status.
type Service struct {
	Deps
	wg sync.WaitGroup
}

// NewService builds a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{Deps: deps}
}

// Job is one accepted resource with the caller's request info.
type Job struct {
	Resource    domain.ResourceDetails
	RequestInfo client.RequestInfo
}

// AcceptRequest is a new upload to process.
type AcceptRequest struct {
	RequestInfo       client.RequestInfo
	Type              domain.ResourceType
	TenantID          string
	FileStoreID       string
	Action            domain.ResourceAction
	HierarchyType     string
	CampaignID        string
	AdditionalDetails map[string]any
}

// Accept records the job, emits its creation and starts processing in the
// background. The returned record is in its initial status.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (domain.ResourceDetails, error) {
	if _, err := s.Registry.Get(req.Type); err != nil {
		return domain.ResourceDetails{}, err
	}
	action := req.Action
	if action == "" {
		action = domain.ResourceActionCreate
	}
	if action != domain.ResourceActionCreate && action != domain.ResourceActionValidate {
		return domain.ResourceDetails{}, domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Unsupported action",
			fmt.Sprintf("action %q is not one of create, validate", action))
	}

	rd := domain.NewResourceDetails(req.Type, req.TenantID, req.FileStoreID, action, req.HierarchyType, req.RequestInfo.ActorUUID(), s.Now())
	rd.CampaignID = req.CampaignID
	for k, v := range req.AdditionalDetails {
		rd.SetDetail(k, v)
	}
	s.Publisher.ResourceCreated(ctx, rd)

	job := Job{Resource: rd, RequestInfo: req.RequestInfo}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Process(context.WithoutCancel(ctx), job)
	}()
	return rd, nil
}

// Wait blocks until every background job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// run is the mutable state of one Process call.
type run struct {
	job         Job
	cfg         resource.Config
	details     []domain.SheetErrorDetail
	credentials []domain.Credential
	activities  []domain.Activity
	log         *logrus.Entry
}

// Process drives job to a terminal status and returns the final record.
// Every outcome, including failures, is emitted.
func (s *Service) Process(ctx context.Context, job Job) domain.ResourceDetails {
	started := s.Now()
	r := &run{
		job: job,
		log: s.Logger.WithFields(logrus.Fields{
			"resource_id":   job.Resource.ID,
			"resource_type": job.Resource.Type,
			"tenant_id":     job.Resource.TenantID,
		}),
	}

	status, err := s.execute(ctx, r)
	if err == nil {
		err = s.annotateAndPersist(ctx, r)
	}

	rd := r.job.Resource
	if err != nil {
		rd.Status = domain.ResourceStatusFailed
		rd.SetError(domain.SnapshotError(err))
		r.log.WithError(err).Error("resource job failed")
	} else {
		rd.Status = status
		rd.SetDetail(DetailSummary, summarize(r.details))
		r.log.WithField("status", status).Info("resource job finished")
	}
	rd.AuditDetails.Touch(job.RequestInfo.ActorUUID(), s.Now())

	m := metrics.Get()
	m.Jobs.WithLabelValues(string(rd.Type), string(rd.Action), string(rd.Status)).Inc()
	m.JobDuration.WithLabelValues(string(rd.Type), string(rd.Status)).Observe(s.Now().Sub(started).Seconds())

	s.Publisher.ResourceUpdated(ctx, rd, r.activities)
	return rd
}

// execute runs read, validation, creation and reconciliation and returns
// the status the job should end in.
func (s *Service) execute(ctx context.Context, r *run) (domain.ResourceStatus, error) {
	rd := r.job.Resource
	cfg, err := s.Registry.Get(rd.Type)
	if err != nil {
		return "", err
	}
	r.cfg = cfg
	if rd.Action == domain.ResourceActionCreate && !cfg.CanCreate() {
		return "", domain.NewAppError(http.StatusBadRequest, domain.CodeCreateNotSupported, "Create not supported",
			fmt.Sprintf("resource type %s only supports validate", rd.Type))
	}

	tables, err := s.read(ctx, rd, cfg)
	if err != nil {
		return "", err
	}

	campaignType, _ := rd.AdditionalDetails[DetailCampaignType].(string)
	schema, err := s.Schemas.ResolveSchema(ctx, r.job.RequestInfo, rd.TenantID, rd.Type, campaignType)
	if err != nil {
		return "", err
	}

	bcfg := validation.BoundaryValidationConfig{
		Column:        cfg.BoundaryColumn,
		TenantID:      rd.TenantID,
		HierarchyType: rd.HierarchyType,
		RequestInfo:   r.job.RequestInfo,
	}
	mc := resource.MapContext{TenantID: rd.TenantID, HierarchyType: rd.HierarchyType}
	var data convert.TypeData
	for _, table := range tables {
		res, err := s.Validator.Validate(ctx, table, schema, bcfg)
		if err != nil {
			return "", err
		}
		r.details = append(r.details, res.Details()...)

		converted, mapErrs := convert.ConvertToTypeData(table.Rows, cfg, mc)
		r.details = append(r.details, mapErrs...)
		data.Create = append(data.Create, converted.Create...)
		data.Search = append(data.Search, converted.Search...)
	}
	if rd.Type == domain.ResourceTypeBoundaryWithTarget {
		r.details = append(r.details, validation.ValidateTargets(tables, resource.ColumnBoundaryCode).Details()...)
	}

	rj := reconcile.Job{TenantID: rd.TenantID, RequestInfo: r.job.RequestInfo}
	if len(data.Search) > 0 && cfg.Search != nil {
		verified, err := s.Reconciler.Verify(ctx, rj, cfg, data.Search)
		if err != nil {
			return "", err
		}
		r.details = append(r.details, verified...)
	}
	if rd.Type == domain.ResourceTypeUser && s.Users != nil {
		clashes, err := s.Users.MatchUserValidation(ctx, r.job.RequestInfo, rd.TenantID, data.Create)
		if err != nil {
			return "", err
		}
		r.details = append(r.details, clashes...)
	}

	if domain.HasRowErrors(r.details) {
		return domain.ResourceStatusInvalid, nil
	}
	if rd.Action == domain.ResourceActionValidate || len(data.Create) == 0 {
		return domain.ResourceStatusCompleted, nil
	}

	if cfg.Codes != nil {
		if err := bulk.AssignUserCredentials(ctx, s.IDs, s.Passwords, r.job.RequestInfo, rd.TenantID, cfg, data.Create); err != nil {
			return "", err
		}
	}
	created, err := s.Creator.CreateInBatches(ctx, data.Create, cfg, bulk.Params{Resource: rd, RequestInfo: r.job.RequestInfo})
	r.activities = created.Activities
	if err != nil {
		return "", err
	}

	outcome, err := s.Reconciler.ConfirmCreation(ctx, rj, cfg, data.Create, created.CreationStart)
	if err != nil {
		return "", err
	}
	r.details = append(r.details, outcome.Details...)
	r.credentials = outcome.Credentials
	if outcome.PersisterError {
		return domain.ResourceStatusPersisterError, nil
	}
	return domain.ResourceStatusCompleted, nil
}

func (s *Service) read(ctx context.Context, rd domain.ResourceDetails, cfg resource.Config) ([]sheet.Table, error) {
	switch {
	case rd.Type == domain.ResourceTypeBoundaryWithTarget:
		tables, err := s.Reader.ReadTargetSheets(ctx, rd.TenantID, rd.FileStoreID, sheet.TargetOptions{
			CodeColumn: resource.ColumnBoundaryCode,
			SkipSheets: []string{resource.SheetReadme, resource.SheetBoundaryData},
		})
		if err != nil {
			return nil, err
		}
		if err := validation.PrecheckTargets(tables, resource.ColumnBoundaryCode); err != nil {
			return nil, err
		}
		return tables, nil
	case isGeoJSON(rd):
		table, err := s.Reader.ReadGeoJSON(ctx, rd.TenantID, rd.FileStoreID)
		if err != nil {
			return nil, err
		}
		return []sheet.Table{table}, nil
	default:
		table, err := s.Reader.ReadSheet(ctx, rd.TenantID, rd.FileStoreID, cfg.SheetName)
		if err != nil {
			return nil, err
		}
		return []sheet.Table{table}, nil
	}
}

// annotateAndPersist writes the status columns into a copy of the upload and
// stores it as the processed file. GeoJSON uploads have no workbook to annotate.
func (s *Service) annotateAndPersist(ctx context.Context, r *run) error {
	rd := &r.job.Resource
	if isGeoJSON(*rd) {
		return nil
	}
	original, err := s.Files.Fetch(ctx, rd.TenantID, rd.FileStoreID)
	if err != nil {
		return err
	}
	annotated, err := sheet.Annotate(original, r.cfg.SheetName, r.details, sheet.AnnotateOptions{
		Localizer:              s.Localizer,
		UniqueIdentifierColumn: r.cfg.UniqueIdentifierColumn,
		UserNameColumn:         r.cfg.UserNameColumn,
		PasswordColumn:         r.cfg.PasswordColumn,
		Credentials:            r.credentials,
	})
	if err != nil {
		return err
	}
	id, err := s.Files.Upload(ctx, rd.TenantID, ProcessedFileModule, fmt.Sprintf("%s-%s.xlsx", rd.Type, rd.ID), annotated)
	if err != nil {
		return err
	}
	rd.ProcessedFileStoreID = id
	return nil
}

func isGeoJSON(rd domain.ResourceDetails) bool {
	ft, _ := rd.AdditionalDetails[DetailFileType].(string)
	return ft == FileTypeGeoJSON
}

// summarize counts the final status of every row.
func summarize(details []domain.SheetErrorDetail) map[string]int {
	final := make(map[string]domain.RowStatus)
	for _, d := range details {
		key := fmt.Sprintf("%s:%d", d.SheetName, d.RowNumber)
		if prev, ok := final[key]; ok && prev.IsError() {
			continue
		}
		final[key] = d.Status
	}
	counts := make(map[string]int)
	for _, st := range final {
		counts[string(st)]++
	}
	return counts
}
