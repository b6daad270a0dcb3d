package store

import (
	"context"

	"github.com/friendsofgo/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Job is the slice of the job document this service reads and counts
// against.
type Job struct {
	JobID             string `bson:"jobId" json:"jobId"`
	Title             string `bson:"title" json:"title"`
	CompanyID         string `bson:"companyId,omitempty" json:"companyId,omitempty"`
	CompanyName       string `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Location          string `bson:"location,omitempty" json:"location,omitempty"`
	HrUsername        string `bson:"hrUsername,omitempty" json:"hrUsername,omitempty"`
	Status            string `bson:"status,omitempty" json:"status,omitempty"`
	TotalApplications int    `bson:"totalApplications" json:"totalApplications"`
}

// JobCatalog reads job documents and applies stats deltas.
type JobCatalog struct {
	coll *mongo.Collection
}

func NewJobCatalog(db *mongo.Database) *JobCatalog {
	return &JobCatalog{coll: db.Collection("jobs")}
}

// FindJob loads one job by its business id.
func (s *JobCatalog) FindJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	err := s.coll.FindOne(ctx, bson.M{"jobId": jobID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find job %s", jobID)
	}
	return &job, nil
}

// ApplyStatsDelta increments the application counter exactly once per
// eventID: the event id is recorded on the document and the increment is
// guarded by its absence, so a replayed event is a no-op.
func (s *JobCatalog) ApplyStatsDelta(ctx context.Context, jobID, eventID string, delta int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"jobId": jobID, "appliedEvents": bson.M{"$ne": eventID}},
		bson.M{
			"$inc":  bson.M{"totalApplications": delta},
			"$push": bson.M{"appliedEvents": eventID},
		})
	if err != nil {
		return errors.Wrapf(err, "apply stats delta for job %s", jobID)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"jobId": jobID})
	if err != nil {
		return errors.Wrapf(err, "lookup job %s", jobID)
	}
	if count == 0 {
		return ErrNotFound
	}
	// Already applied; replay converges.
	return nil
}
