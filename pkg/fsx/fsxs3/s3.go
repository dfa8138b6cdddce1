// Package fsxs3 implements fsx.FileSystem on an S3 bucket.
package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of *s3.Client used here.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type S3FileSystem struct {
	client API
	bucket string
	prefix string
}

// NewS3FileSystem stores every key under prefix in bucket.
func NewS3FileSystem(client API, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (fs *S3FileSystem) key(path string) (string, error) {
	key, err := fsx.Clean(path)
	if err != nil {
		return "", err
	}
	if fs.prefix == "" {
		return key, nil
	}
	return fs.prefix + "/" + key, nil
}

func (fs *S3FileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	key, err := fs.key(path)
	if err != nil {
		return err
	}

	_, err = fs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(fs.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return fsx.ErrIOFailure("put", path, err)
	}
	return nil
}

func (fs *S3FileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	key, err := fs.key(path)
	if err != nil {
		return nil, err
	}

	out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fsx.ErrNotFound(path)
		}
		return nil, fsx.ErrIOFailure("get", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fsx.ErrIOFailure("get", path, err)
	}
	return data, nil
}

func (fs *S3FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	key, err := fs.key(path)
	if err != nil {
		return false, err
	}

	_, err = fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fsx.ErrIOFailure("head", path, err)
	}
	return true, nil
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
