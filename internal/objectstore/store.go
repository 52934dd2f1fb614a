// Package objectstore wraps the S3 bucket holding audio units, metadata
// documents, and transcription outputs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// BlobStore is the narrow view of the bucket the pipeline needs. It exists
// so tests can substitute an in-memory double.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	URI(key string) string
}

// S3Store implements BlobStore against a single bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

// Get reads the full object into memory. The documents this service fetches
// (XML exports, transcript JSON) are small.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// PresignPut returns a time-limited write URL for key.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}

	log.Debug().Str("key", key).Str("content_type", contentType).Msg("presigned upload URL issued")
	return req.URL, nil
}

// URI returns the s3:// locator handed to the transcription collaborator.
func (s *S3Store) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// UploadKey places bare filenames under input/; path-qualified names are
// kept as supplied.
func UploadKey(filename string) string {
	if strings.Contains(filename, "/") {
		return filename
	}
	return "input/" + filename
}

// ContentTypeFor infers the upload content type from the filename extension,
// with a generic binary fallback.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
