package repository

import "time"

// Option applies a configuration option to the KVStore.
type Option func(*KVStore)

// WithTTL expires stored runs after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *KVStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxRetries sets how often bucket creation is attempted.
func WithMaxRetries(n int) Option {
	return func(s *KVStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}
