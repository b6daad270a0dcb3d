package store

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CvFileStore keeps uploaded CV documents. The saga stores the file before
// the application insert and deletes it again if the insert fails.
type CvFileStore struct {
	coll *mongo.Collection
}

func NewCvFileStore(db *mongo.Database) *CvFileStore {
	return &CvFileStore{coll: db.Collection("cv_files")}
}

// Save stores the CV bytes and returns the generated file id.
func (s *CvFileStore) Save(ctx context.Context, username, fileName, contentType string, data []byte) (string, error) {
	fileID := uuid.NewString()
	_, err := s.coll.InsertOne(ctx, bson.M{
		"fileId":      fileID,
		"username":    username,
		"fileName":    fileName,
		"contentType": contentType,
		"data":        data,
		"uploadedAt":  time.Now().UTC(),
	})
	if err != nil {
		return "", errors.Wrap(err, "save cv file")
	}
	return fileID, nil
}

// Delete removes a stored CV. Used as saga compensation; deleting an absent
// file is not an error.
func (s *CvFileStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"fileId": fileID})
	if err != nil {
		return errors.Wrapf(err, "delete cv file %s", fileID)
	}
	return nil
}
