package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVStore keeps each run's rows as one CSV value in a JetStream KV bucket.
type KVStore struct {
	kv         jetstream.KeyValue
	bucket     string
	ttl        time.Duration
	maxRetries int
}

// NewKVStore opens bucket, creating it when missing.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string, opts ...Option) (*KVStore, error) {
	s := &KVStore{bucket: bucket, maxRetries: 3}
	for _, opt := range opts {
		opt(s)
	}
	kv, err := ensureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "teamforge run records",
		TTL:         s.ttl,
	}, s.maxRetries)
	if err != nil {
		return nil, err
	}
	s.kv = kv
	return s, nil
}

func (s *KVStore) Save(ctx context.Context, runID string, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, runID, buf.Bytes()); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, runID, err)
	}
	return nil
}

func (s *KVStore) Load(ctx context.Context, runID string) ([]Row, error) {
	entry, err := s.kv.Get(ctx, runID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, runID, err)
	}
	return ReadCSV(bytes.NewReader(entry.Value()))
}

func (s *KVStore) Delete(ctx context.Context, runID string) error {
	err := s.kv.Delete(ctx, runID)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, runID, err)
	}
	return nil
}

// ensureBucket creates or opens a KV bucket, retrying with exponential
// backoff when concurrent creators race.
func ensureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig, maxRetries int) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("create/open KV bucket %s after %d attempts: %w", cfg.Bucket, maxRetries, lastErr)
}
