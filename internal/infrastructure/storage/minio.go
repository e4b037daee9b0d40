package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// ArchiveClient keeps a site-wide copy of every run's artifacts in an
// object bucket, independent of the per-recipient drive fan-out
type ArchiveClient struct {
	client *minio.Client
	bucket string
}

// NewArchiveClient creates the archive client and ensures the bucket exists
func NewArchiveClient(cfg *config.StorageConfig) (*ArchiveClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &ArchiveClient{client: minioClient, bucket: cfg.BucketName}

	ctx := context.Background()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucket creates the archive bucket when missing. The archive is
// private; nothing downstream needs presigned access.
func (a *ArchiveClient) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PutObject writes one object, overwriting any previous version
func (a *ArchiveClient) PutObject(ctx context.Context, objectName string, content []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// ArchiveTranscript stores the raw transcript for a meeting. Keys are
// deterministic so redeliveries overwrite rather than duplicate.
func (a *ArchiveClient) ArchiveTranscript(ctx context.Context, meetingID, filename string, content []byte, contentType string) error {
	return a.PutObject(ctx, archiveKey(meetingID, filename), content, contentType)
}

// ArchiveSummary stores the generated summary for a meeting
func (a *ArchiveClient) ArchiveSummary(ctx context.Context, meetingID, filename, summary string) error {
	return a.PutObject(ctx, archiveKey(meetingID, filename), []byte(summary), "text/plain")
}

func archiveKey(meetingID, filename string) string {
	return fmt.Sprintf("meetings/%s/%s", meetingID, filename)
}
