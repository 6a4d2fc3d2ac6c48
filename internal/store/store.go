// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"
)

// ClipRepository persists synthesized speech clips keyed by text digest.
// Only the digest is stored, never the spoken text.
type ClipRepository interface {
	// GetClip returns the audio for key and whether it was found.
	GetClip(ctx context.Context, key string) ([]byte, bool, error)

	// PutClip stores or refreshes the audio for key.
	PutClip(ctx context.Context, key string, audio []byte) error

	// DeleteExpiredClips removes clips not used within ttl.
	DeleteExpiredClips(ctx context.Context, ttl time.Duration) (int64, error)

	// Stats reports the number of cached clips and their total size in bytes.
	Stats(ctx context.Context) (ClipStats, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// ClipStats summarizes the clip cache.
type ClipStats struct {
	Clips int64 `json:"clips"`
	Bytes int64 `json:"bytes"`
}

// Ensure SQLiteStore implements ClipRepository.
var _ ClipRepository = (*SQLiteStore)(nil)
