// Package s3 implements the low-level S3 client used by the artifact store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"goa.design/clue/health"

	"github.com/distrihub/agentd/runtime/agent/artifact"
)

const clientName = "artifact-s3"

// Client exposes S3-backed operations for artifact payloads.
type Client interface {
	health.Pinger

	Put(ctx context.Context, in artifact.PutInput) (artifact.Ref, error)
	Get(ctx context.Context, key string) (io.ReadCloser, artifact.Ref, error)
}

// Options configures the S3 client implementation.
type Options struct {
	API    API
	Bucket string
	Prefix string
}

// API is the subset of the AWS SDK S3 client the artifact store depends on,
// narrowed so tests can substitute an in-memory fake.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type client struct {
	api    API
	bucket string
	prefix string
}

// New returns a Client backed by the provided S3 API.
func New(opts Options) (Client, error) {
	if opts.API == nil {
		return nil, errors.New("s3 api is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &client{api: opts.API, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

func (c *client) Put(ctx context.Context, in artifact.PutInput) (artifact.Ref, error) {
	if in.Body == nil {
		return artifact.Ref{}, errors.New("body is required")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return artifact.Ref{}, err
	}

	key := c.objectKey(in)
	putIn := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if in.ContentType != "" {
		putIn.ContentType = aws.String(in.ContentType)
	}
	if _, err := c.api.PutObject(ctx, putIn); err != nil {
		return artifact.Ref{}, err
	}

	return artifact.Ref{
		Key:         key,
		ThreadID:    in.ThreadID,
		TaskID:      in.TaskID,
		ToolCallID:  in.ToolCallID,
		ContentType: in.ContentType,
		Bytes:       int64(len(data)),
		CreatedAt:   time.Now(),
	}, nil
}

func (c *client) Get(ctx context.Context, key string) (io.ReadCloser, artifact.Ref, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, artifact.Ref{}, err
	}
	ref := artifact.Ref{Key: key}
	if out.ContentLength != nil {
		ref.Bytes = *out.ContentLength
	}
	if out.ContentType != nil {
		ref.ContentType = *out.ContentType
	}
	return out.Body, ref, nil
}

func (c *client) objectKey(in artifact.PutInput) string {
	key := in.ThreadID + "/" + in.TaskID + "/" + in.ToolCallID + "/" + uuid.NewString()
	if c.prefix != "" {
		return c.prefix + "/" + key
	}
	return key
}
