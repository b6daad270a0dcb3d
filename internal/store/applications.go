package store

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Application statuses. SUBMITTED is the durable state the saga commits
// before any fan-out happens.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
)

// StatusHistoryEntry is one immutable line of an application's audit trail.
type StatusHistoryEntry struct {
	Status    string    `bson:"status" json:"status"`
	ChangedBy string    `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
}

// JobSnapshot freezes the job details at submission time so the application
// survives later job edits.
type JobSnapshot struct {
	JobID       string    `bson:"jobId" json:"jobId"`
	Title       string    `bson:"title" json:"title"`
	CompanyID   string    `bson:"companyId,omitempty" json:"companyId,omitempty"`
	CompanyName string    `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	HrUsername  string    `bson:"hrUsername,omitempty" json:"hrUsername,omitempty"`
	SnapshotAt  time.Time `bson:"snapshotAt" json:"snapshotAt"`
}

// Application is the document owned by the application service.
type Application struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username      string               `bson:"username" json:"username"`
	Email         string               `bson:"email" json:"email"`
	JobID         string               `bson:"jobId" json:"jobId"`
	CompanyID     string               `bson:"companyId,omitempty" json:"companyId,omitempty"`
	JobSnapshot   JobSnapshot          `bson:"jobSnapshot" json:"jobSnapshot"`
	CvFileID      string               `bson:"cvFileId,omitempty" json:"cvFileId,omitempty"`
	CvFileName    string               `bson:"cvFileName,omitempty" json:"cvFileName,omitempty"`
	CoverLetter   string               `bson:"coverLetter,omitempty" json:"coverLetter,omitempty"`
	Status        string               `bson:"status" json:"status"`
	StatusHistory []StatusHistoryEntry `bson:"statusHistory" json:"statusHistory"`
	SubmittedAt   time.Time            `bson:"submittedAt" json:"submittedAt"`
}

// ApplicationStore persists applications in Mongo.
type ApplicationStore struct {
	coll *mongo.Collection
}

func NewApplicationStore(db *mongo.Database) *ApplicationStore {
	return &ApplicationStore{coll: db.Collection("applications")}
}

// Exists reports whether this username already applied to the job. The
// (username, jobId) pair is the natural uniqueness key.
func (s *ApplicationStore) Exists(ctx context.Context, username, jobID string) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"username": username, "jobId": jobID})
	if err != nil {
		return false, errors.Wrap(err, "count applications")
	}
	return count > 0, nil
}

// Insert writes the application document. This is the saga's durable step.
func (s *ApplicationStore) Insert(ctx context.Context, app *Application) error {
	res, err := s.coll.InsertOne(ctx, app)
	if err != nil {
		return errors.Wrap(err, "insert application")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		app.ID = oid
	}
	return nil
}

// FindByID loads one application.
func (s *ApplicationStore) FindByID(ctx context.Context, id string) (*Application, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var app Application
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find application")
	}
	return &app, nil
}
