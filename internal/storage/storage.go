// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"memer/internal/model"
)

// Storage is the interface for the persisted channels collection.
type Storage interface {
	// ListChannels returns every stored channel document. Documents are
	// returned as stored; decoding them is up to the caller.
	ListChannels(ctx context.Context) ([]model.ChannelDocument, error)
	// UpsertChannel updates the document with doc's channel key, or inserts
	// it when none exists.
	UpsertChannel(ctx context.Context, doc model.ChannelDocument) error
	// GetChannel returns the document stored for the given channel key.
	GetChannel(ctx context.Context, channel string) (*model.ChannelDocument, error)
	// CountChannels returns the number of stored documents.
	CountChannels(ctx context.Context) (int, error)

	Close() error
}
