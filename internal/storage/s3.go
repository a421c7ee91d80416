package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
)

// S3Store reads and writes JSON snapshots and report artifacts in S3.
type S3Store struct {
	client *s3.Client
	logger *logger.Logger
}

// NewS3Store creates a store from a shared AWS config.
func NewS3Store(cfg aws.Config, log *logger.Logger) *S3Store {
	return &S3Store{client: s3.NewFromConfig(cfg), logger: log}
}

// PutJSON marshals payload and writes it under the given key.
func (s *S3Store) PutJSON(ctx context.Context, bucket, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Storage("failed to marshal payload", err)
	}
	return s.PutObject(ctx, bucket, key, "application/json", body)
}

// PutObject writes raw bytes under the given key.
func (s *S3Store) PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("failed to write s3://%s/%s", bucket, key), err)
	}
	s.logger.WithFields(map[string]interface{}{
		"bucket": bucket,
		"key":    key,
		"bytes":  len(body),
	}).Debug("Wrote object")
	return nil
}

// GetJSON reads the object at key and unmarshals it into out.
func (s *S3Store) GetJSON(ctx context.Context, bucket, key string, out interface{}) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("failed to read s3://%s/%s", bucket, key), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("failed to read body of s3://%s/%s", bucket, key), err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Storage(fmt.Sprintf("failed to decode s3://%s/%s", bucket, key), err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for the object at key.
func (s *S3Store) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", apperrors.Storage(fmt.Sprintf("failed to presign s3://%s/%s", bucket, key), err)
	}
	return req.URL, nil
}

// RawSnapshotKey builds the object key for a raw provider snapshot.
func RawSnapshotKey(kind, date string) string {
	return fmt.Sprintf("%s/%s/%s-%s.json", kind, date, kind, date)
}

// ReportKey builds a date-prefixed object key for a report artifact.
func ReportKey(prefix, ext string, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	return fmt.Sprintf("%s/%s/%s-%s.%s", prefix, day, prefix, now.UTC().Format("20060102T150405Z"), ext)
}

// ParseS3URI splits an s3://bucket/key URI.
func ParseS3URI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URI: %s", uri)
	}
	return parts[0], parts[1], nil
}
