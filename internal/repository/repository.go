package repository

import (
	"context"
	"errors"
	"time"

	"eltexfacts/internal/domain"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("not found")

// DeviceSummary is the latest collection state of one device
type DeviceSummary struct {
	Device        string    `json:"device"`
	Snapshots     int       `json:"snapshots"`
	LastCollected time.Time `json:"last_collected"`
}

// Repository defines the interface for snapshot storage
type Repository interface {
	// Write operations
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
	DeleteSnapshots(ctx context.Context, device string) (int64, error)
	// PruneSnapshots keeps the newest keep snapshots of device
	PruneSnapshots(ctx context.Context, device string, keep int) (int64, error)

	// Read operations
	GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error)
	LatestSnapshot(ctx context.Context, device string) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context, device string, limit int) ([]*domain.Snapshot, error)
	ListDevices(ctx context.Context) ([]DeviceSummary, error)

	// Close releases resources
	Close() error
}
