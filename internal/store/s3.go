package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"vsync/internal/config"
	"vsync/internal/vsync"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// presignAPI is the subset of *s3.PresignClient used by S3Store.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps snapshots in an S3 bucket (or an S3-compatible service
// such as Supabase Storage or MinIO) under vaults/<identity>.zip.
type S3Store struct {
	client   s3API
	uploader *manager.Uploader
	presign  presignAPI
	bucket   string
}

// NewS3Store builds an S3Store from configuration. Static credentials are
// used when an access key is configured; otherwise the default AWS
// credential chain applies.
func NewS3Store(ctx context.Context, cfg config.StoreConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 store requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})
	return newS3Store(client, s3.NewPresignClient(client), cfg.S3Bucket), nil
}

func newS3Store(client s3API, presign presignAPI, bucket string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  presign,
		bucket:   bucket,
	}
}

// Upload replaces the snapshot for id. Large blobs go up as multipart uploads.
func (s *S3Store) Upload(ctx context.Context, id vsync.VaultIdentity, r io.Reader, size int64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(id.ObjectKey()),
		Body:          r,
		ContentType:   aws.String("application/zip"),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", id.ObjectKey(), mapS3Error(err))
	}
	return nil
}

// Fetch writes the snapshot for id to w.
func (s *S3Store) Fetch(ctx context.Context, id vsync.VaultIdentity, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id.ObjectKey()),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", id.ObjectKey(), mapS3Error(err))
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", id.ObjectKey(), err)
	}
	return nil
}

// Exists reports whether a snapshot is stored for id.
func (s *S3Store) Exists(ctx context.Context, id vsync.VaultIdentity) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id.ObjectKey()),
	})
	if err == nil {
		return true, nil
	}
	if err := mapS3Error(err); errors.Is(err, vsync.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", id.ObjectKey(), err)
}

// SignedURL returns a presigned GET URL for the snapshot, valid for ttl.
func (s *S3Store) SignedURL(ctx context.Context, id vsync.VaultIdentity, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id.ObjectKey()),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", id.ObjectKey(), err)
	}
	return req.URL, nil
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

// mapS3Error turns missing-object errors into vsync.ErrNotFound. GetObject
// reports NoSuchKey; HeadObject has no body and reports a bare NotFound.
func mapS3Error(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %v", vsync.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", vsync.ErrNotFound, err)
		}
	}
	return err
}

var _ vsync.SnapshotStore = (*S3Store)(nil)
