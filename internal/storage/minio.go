package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"pkt.systems/pslog"
)

// S3Config describes an S3-compatible bucket. To switch to ArvanCloud Object
// Storage, change the endpoint and credentials; it is S3-compatible.
type S3Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string // browser-accessible base URL of the bucket, e.g. "http://localhost:9000/uploads"
	UseSSL     bool
	PublicRead bool // apply an anonymous-GET bucket policy so composed URLs resolve
}

// MinioBackend stores blobs as objects named <workspace>/<blobID>.
type MinioBackend struct {
	client    *minio.Client
	bucket    string
	workspace string
}

// MinioDialer returns a Dialer that creates a MinIO client, ensures the bucket
// exists and, when cfg.PublicRead is set, applies a public-read policy.
func MinioDialer(cfg S3Config, logger pslog.Logger) Dialer {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return func(ctx context.Context, s Session) (*Connection, error) {
		if s.Workspace == "" {
			return nil, errors.New("session has no workspace")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}

		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket existence: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
			}
			logger.Info("storage.bucket.created", "bucket", cfg.Bucket)
		}

		if cfg.PublicRead {
			if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
				return nil, fmt.Errorf("set bucket policy: %w", err)
			}
		}

		endpoints := Endpoints{
			Files:  strings.TrimRight(cfg.PublicBase, "/"),
			Upload: client.EndpointURL().String(),
		}
		backend := &MinioBackend{
			client:    client,
			bucket:    cfg.Bucket,
			workspace: s.Workspace,
		}
		return NewConnection(endpoints, s.Workspace, backend), nil
	}
}

// Write implements Backend. The blob id is a fresh UUID.
func (b *MinioBackend) Write(ctx context.Context, wr WriteRequest) (WriteResult, error) {
	blobID := uuid.NewString()
	key := objectKey(b.workspace, blobID)
	info, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(wr.Data), wr.Size, minio.PutObjectOptions{
		ContentType:  wr.ContentType,
		UserMetadata: map[string]string{"filename": wr.Filename},
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("put object %q: %w", key, err)
	}
	size := info.Size
	if size == 0 {
		size = wr.Size
	}
	return WriteResult{BlobID: blobID, Size: size}, nil
}

func objectKey(workspace, blobID string) string {
	return workspace + "/" + blobID
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
