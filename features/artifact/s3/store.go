// Package s3 wires the artifact.Store interface to the S3 client.
package s3

import (
	"context"
	"errors"
	"io"

	clientss3 "github.com/distrihub/agentd/features/artifact/s3/clients/s3"
	"github.com/distrihub/agentd/runtime/agent/artifact"
)

// Options configures the Store wrapper.
type Options struct {
	Client clientss3.Client
}

// Store implements artifact.Store by delegating to the S3 client.
type Store struct {
	client clientss3.Client
}

// NewStore builds an S3-backed artifact store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// NewStoreFromS3 is a helper that instantiates the underlying client using the given options.
func NewStoreFromS3(opts clientss3.Options) (*Store, error) {
	client, err := clientss3.New(opts)
	if err != nil {
		return nil, err
	}
	return NewStore(Options{Client: client})
}

// Put stores the payload and returns its Ref.
func (s *Store) Put(ctx context.Context, in artifact.PutInput) (artifact.Ref, error) {
	return s.client.Put(ctx, in)
}

// Get streams back a previously stored payload.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, artifact.Ref, error) {
	return s.client.Get(ctx, key)
}
