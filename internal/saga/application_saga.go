// Package saga coordinates the application submission flow: one durable
// local write followed by best-effort event fan-out. There is no rollback
// path past the durable step; downstream failures only delay its effects.
package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"workfit-event-service-golang/internal/events"
	"workfit-event-service-golang/internal/producer"
	"workfit-event-service-golang/internal/store"

	"github.com/friendsofgo/errors"
)

// Saga step names, for logging only.
const (
	stepValidate     = "VALIDATE"
	stepFetchJobInfo = "FETCH_JOB_INFO"
	stepStoreCV      = "STORE_CV"
	stepSave         = "SAVE_APPLICATION"
	stepPublish      = "PUBLISH_EVENTS"
)

// ValidationError marks submissions rejected before any write happened.
// API callers map it to a 4xx.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateError rejects a second submission for the same username/job
// pair. API callers map it to a 409.
type DuplicateError struct {
	Username string
	JobID    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("user %s already applied to job %s", e.Username, e.JobID)
}

// SubmitRequest is the inbound submission.
type SubmitRequest struct {
	Username      string
	Email         string
	JobID         string
	CoverLetter   string
	CvFileName    string
	CvContentType string
	CvData        []byte
}

// ApplicationRepo is the durable store for the saga's local write.
type ApplicationRepo interface {
	Exists(ctx context.Context, username, jobID string) (bool, error)
	Insert(ctx context.Context, app *store.Application) error
}

// JobSource provides the job snapshot frozen into the application.
type JobSource interface {
	FindJob(ctx context.Context, jobID string) (*store.Job, error)
}

// FileStore holds the CV between upload and the durable write.
type FileStore interface {
	Save(ctx context.Context, username, fileName, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, fileID string) error
}

// Topics names the destinations of the saga's fan-out.
type Topics struct {
	ApplicationEvents string
	JobEvents         string
}

// Orchestrator runs the submission saga.
type Orchestrator struct {
	apps   ApplicationRepo
	jobs   JobSource
	files  FileStore
	bus    producer.Publisher
	topics Topics
}

func NewOrchestrator(apps ApplicationRepo, jobs JobSource, files FileStore, bus producer.Publisher, topics Topics) *Orchestrator {
	return &Orchestrator{apps: apps, jobs: jobs, files: files, bus: bus, topics: topics}
}

// Submit executes the saga. Steps before SAVE_APPLICATION fail the whole
// operation; a stored CV is deleted again if the save fails. Once the save
// succeeds the caller gets the application back no matter what the publish
// step does: cross-service effects are eventually consistent, reconciled by
// downstream consumers and DLT replay.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*store.Application, error) {
	log.Printf("[Saga] starting submission for user %s, job %s", req.Username, req.JobID)

	// Step 1: VALIDATE
	if err := o.validate(ctx, req); err != nil {
		log.Printf("[Saga] failed at %s: %v", stepValidate, err)
		return nil, err
	}

	// Step 2: FETCH_JOB_INFO
	job, err := o.jobs.FindJob(ctx, req.JobID)
	if err != nil {
		log.Printf("[Saga] failed at %s: %v", stepFetchJobInfo, err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationErrorf("job %s does not exist", req.JobID)
		}
		return nil, err
	}

	// Step 3: STORE_CV
	fileID, err := o.files.Save(ctx, req.Username, req.CvFileName, req.CvContentType, req.CvData)
	if err != nil {
		log.Printf("[Saga] failed at %s: %v", stepStoreCV, err)
		return nil, errors.Wrap(err, "store cv")
	}

	// Step 4: SAVE_APPLICATION — the durable write.
	now := time.Now().UTC()
	app := &store.Application{
		Username:  req.Username,
		Email:     req.Email,
		JobID:     req.JobID,
		CompanyID: job.CompanyID,
		JobSnapshot: store.JobSnapshot{
			JobID:       job.JobID,
			Title:       job.Title,
			CompanyID:   job.CompanyID,
			CompanyName: job.CompanyName,
			Location:    job.Location,
			HrUsername:  job.HrUsername,
			SnapshotAt:  now,
		},
		CvFileID:    fileID,
		CvFileName:  req.CvFileName,
		CoverLetter: req.CoverLetter,
		Status:      store.StatusSubmitted,
		StatusHistory: []store.StatusHistoryEntry{
			{Status: store.StatusDraft, ChangedBy: req.Username, ChangedAt: now},
			{Status: store.StatusSubmitted, ChangedBy: req.Username, ChangedAt: now, Note: "submitted by candidate"},
		},
		SubmittedAt: now,
	}
	if err := o.apps.Insert(ctx, app); err != nil {
		log.Printf("[Saga] failed at %s: %v", stepSave, err)
		o.compensateStoredCV(ctx, fileID)
		return nil, errors.Wrap(err, "save application")
	}

	// Step 5: PUBLISH_EVENTS — fire-and-forget. The application is already
	// durable; failures here are logged and left to reconciliation.
	o.publishEvents(ctx, app)

	log.Printf("[Saga] submission completed: applicationId=%s", app.ID.Hex())
	return app, nil
}

func (o *Orchestrator) validate(ctx context.Context, req SubmitRequest) error {
	if req.Username == "" || req.Email == "" {
		return validationErrorf("username and email are required")
	}
	if req.JobID == "" {
		return validationErrorf("jobId is required")
	}
	if len(req.CvData) == 0 {
		return validationErrorf("a CV file is required")
	}

	exists, err := o.apps.Exists(ctx, req.Username, req.JobID)
	if err != nil {
		return errors.Wrap(err, "duplicate check")
	}
	if exists {
		return &DuplicateError{Username: req.Username, JobID: req.JobID}
	}
	return nil
}

func (o *Orchestrator) compensateStoredCV(ctx context.Context, fileID string) {
	if err := o.files.Delete(ctx, fileID); err != nil {
		log.Printf("[Saga] compensation failed, orphaned cv file %s: %v", fileID, err)
		return
	}
	log.Printf("[Saga] compensated: removed cv file %s", fileID)
}

func (o *Orchestrator) publishEvents(ctx context.Context, app *store.Application) {
	appID := app.ID.Hex()

	created := events.ApplicationCreatedEvent{
		Header: events.NewHeader(events.TypeApplicationCreated),
		Data: events.ApplicationData{
			ApplicationID:  appID,
			Username:       app.Username,
			CandidateEmail: app.Email,
			JobID:          app.JobID,
			Status:         app.Status,
			JobTitle:       app.JobSnapshot.Title,
			CompanyName:    app.JobSnapshot.CompanyName,
			AppliedAt:      app.SubmittedAt,
			HrUsername:     app.JobSnapshot.HrUsername,
			CandidateName:  app.Username,
		},
	}
	if err := o.bus.Publish(ctx, o.topics.ApplicationEvents, appID, created); err != nil {
		log.Printf("[Saga] %s: application event publish failed (left to reconciliation): %v", stepPublish, err)
	}

	stats := events.JobStatsUpdateEvent{
		Header: events.NewHeader(events.TypeJobStatsUpdated),
		JobID:  app.JobID,
		Delta:  1,
	}
	if err := o.bus.Publish(ctx, o.topics.JobEvents, app.JobID, stats); err != nil {
		log.Printf("[Saga] %s: job stats publish failed (left to reconciliation): %v", stepPublish, err)
	}
}
