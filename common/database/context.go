// Package database holds timeout helpers shared by the store backends.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds reads.
	DefaultQueryTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds single writes.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultMigrateTimeout bounds schema setup (indexes, migrations).
	DefaultMigrateTimeout = 30 * time.Second
)

// QueryContext derives a context bounded by DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext derives a context bounded by d, or DefaultWriteTimeout when d <= 0.
func WriteContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultWriteTimeout
	}
	return context.WithTimeout(parent, d)
}

// MigrateContext derives a context bounded by DefaultMigrateTimeout.
func MigrateContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultMigrateTimeout)
}
