package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

// ErrStorage marks object store failures.
var ErrStorage = errors.New("object store failure")

// Location points at one stored object. Only the pointer is persisted in
// the relational store; the bytes live in the object store.
type Location struct {
	Bucket string
	Key    string
}

// Store is the object store surface the pipeline consumes.
type Store interface {
	Store(ctx context.Context, data []byte, ext string) (Location, error)
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}

var _ Store = (*Client)(nil)

// Client stores chapter bodies and finished artifacts in an
// S3-compatible object store.
type Client struct {
	minio  *minio.Client
	bucket string
}

func NewClient() (*Client, error) {
	c := cfg.Get()

	minioClient, err := minio.New(c.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.StorageAccessKey, c.StorageSecretKey, ""),
		Secure: c.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Client{
		minio:  minioClient,
		bucket: c.StorageBucket,
	}, nil
}

// Store writes data under a fresh key with the given extension and
// returns its location.
func (c *Client) Store(ctx context.Context, data []byte, ext string) (Location, error) {
	key := uuid.NewString() + ext

	_, err := c.minio.PutObject(ctx, c.bucket, key,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return Location{}, fmt.Errorf("put object %s: %v: %w", key, err, ErrStorage)
	}

	return Location{Bucket: c.bucket, Key: key}, nil
}

func (c *Client) Fetch(ctx context.Context, loc Location) ([]byte, error) {
	object, err := c.minio.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %v: %w", loc.Bucket, loc.Key, err, ErrStorage)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %v: %w", loc.Bucket, loc.Key, err, ErrStorage)
	}

	return data, nil
}
