package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"vsync/internal/vsync"
)

// fakeS3 is an in-memory bucket. Multipart calls fail; test blobs are far
// below the uploader's part size.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	bucketErr    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &v4.PresignedHTTPRequest{
		Method: "GET",
		URL:    fmt.Sprintf("https://%s.s3.test/%s?X-Amz-Expires=%d", aws.ToString(in.Bucket), aws.ToString(in.Key), int(opts.Expires.Seconds())),
	}, nil
}

func TestS3Store_UploadFetch(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3Store(fake, fakePresigner{}, "bucket")

	blob := "PK\x03\x04 archive"
	if err := s.Upload(ctx, "notes", strings.NewReader(blob), int64(len(blob))); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, ok := fake.objects["vaults/notes.zip"]; !ok {
		t.Fatalf("object stored under %v, want vaults/notes.zip", fake.objects)
	}
	if ct := fake.contentTypes["vaults/notes.zip"]; ct != "application/zip" {
		t.Errorf("ContentType = %q, want application/zip", ct)
	}

	var buf bytes.Buffer
	if err := s.Fetch(ctx, "notes", &buf); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if buf.String() != blob {
		t.Errorf("Fetch() = %q, want %q", buf.String(), blob)
	}

	if ok, err := s.Exists(ctx, "notes"); !ok || err != nil {
		t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
	}
}

func TestS3Store_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newS3Store(newFakeS3(), fakePresigner{}, "bucket")

	if err := s.Fetch(ctx, "missing", &bytes.Buffer{}); !errors.Is(err, vsync.ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
	if ok, err := s.Exists(ctx, "missing"); ok || err != nil {
		t.Errorf("Exists() = %v, %v; want false, nil", ok, err)
	}
}

func TestS3Store_SignedURL(t *testing.T) {
	s := newS3Store(newFakeS3(), fakePresigner{}, "bucket")

	u, err := s.SignedURL(context.Background(), "notes", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	if u != "https://bucket.s3.test/vaults/notes.zip?X-Amz-Expires=3600" {
		t.Errorf("SignedURL() = %q", u)
	}
}

func TestS3Store_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	s := newS3Store(fake, fakePresigner{}, "bucket")

	if err := s.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.bucketErr = &smithy.GenericAPIError{Code: "NotFound"}
	if err := s.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{"typed NoSuchKey", &types.NoSuchKey{}, true},
		{"generic NoSuchKey code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"head not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(mapS3Error(tt.err), vsync.ErrNotFound); got != tt.wantNotFound {
				t.Errorf("mapS3Error() not found = %v, want %v", got, tt.wantNotFound)
			}
		})
	}
}
