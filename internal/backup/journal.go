package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"inkwell/core/internal/store"
)

// Journal archives applied edit batches as JSON objects in a MinIO bucket,
// one object per edit-log entry. It is an off-site copy of the edit log, not
// a source of truth.
type Journal struct {
	client *minio.Client
	bucket string
}

// NewJournal connects to MinIO and ensures the target bucket exists.
func NewJournal(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Journal, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	j := &Journal{client: client, bucket: bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureBucket(ctx context.Context) error {
	exists, err := j.client.BucketExists(ctx, j.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", j.bucket, err)
	}
	if exists {
		return nil
	}
	if err := j.client.MakeBucket(ctx, j.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", j.bucket, err)
	}
	return nil
}

// PutEntry writes one edit-log record to the journal at <docId>/<entryId>.json.
func (j *Journal) PutEntry(ctx context.Context, entry store.EditLogEntry) error {
	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	objectName := fmt.Sprintf("%s/%s.json", entry.DocumentID, entry.ID)
	_, err = j.client.PutObject(ctx, j.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put journal entry %s: %w", objectName, err)
	}
	return nil
}

// GetEntry reads one edit-log record back from the journal.
func (j *Journal) GetEntry(ctx context.Context, documentID, entryID string) (*store.EditLogEntry, error) {
	objectName := fmt.Sprintf("%s/%s.json", documentID, entryID)
	obj, err := j.client.GetObject(ctx, j.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get journal entry %s: %w", objectName, err)
	}
	defer obj.Close()

	var entry store.EditLogEntry
	if err := json.NewDecoder(obj).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode journal entry %s: %w", objectName, err)
	}
	return &entry, nil
}
