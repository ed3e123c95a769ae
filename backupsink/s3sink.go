package backupsink

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink streams a backup directly into an S3 object via a multipart
// upload, without ever buffering the full snapshot in memory: writes go
// into an io.Pipe whose read side is handed to the SDK's upload manager,
// which chunks it into parts as it goes.
type S3Sink struct {
	pw       *io.PipeWriter
	uploadMu chan error // signaled once the background upload goroutine returns
}

// NewS3Sink starts a background multipart upload to bucket/key using
// client. Close blocks until the upload completes (or fails) and reports
// its error.
func NewS3Sink(ctx context.Context, client *s3.Client, bucket, key string) *S3Sink {
	pr, pw := io.Pipe()
	uploader := manager.NewUploader(client)

	done := make(chan error, 1)
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
			Body:   pr,
		})
		// Drain whatever the writer side still has buffered so Write calls
		// already in flight don't block forever on a reader that's gone.
		_, _ = io.Copy(io.Discard, pr)
		done <- err
	}()

	return &S3Sink{pw: pw, uploadMu: done}
}

// NewDefaultS3Sink resolves AWS credentials and region the standard way
// (environment, shared config file, EC2/ECS role) via the SDK's default
// credential chain and starts an upload to bucket/key. accessKey/secretKey
// override the chain with static credentials when non-empty, for
// environments (CI, one-off CLI invocations) that don't have a profile or
// instance role configured.
func NewDefaultS3Sink(ctx context.Context, region, bucket, key, accessKey, secretKey string) (*S3Sink, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	var cfg aws.Config
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backupsink: loading aws config: %w", err)
	}
	return NewS3Sink(ctx, s3.NewFromConfig(cfg), bucket, key), nil
}

func (s *S3Sink) Write(p []byte) (int, error) { return s.pw.Write(p) }

// Close closes the pipe's write side and waits for the upload to finish.
func (s *S3Sink) Close() error {
	if err := s.pw.Close(); err != nil {
		return fmt.Errorf("backupsink: closing pipe: %w", err)
	}
	if err := <-s.uploadMu; err != nil {
		return fmt.Errorf("backupsink: s3 upload: %w", err)
	}
	return nil
}
