// Package health provides readiness checks for the API's backing services.
package health

import (
	"context"
	"fmt"
)

// Pinger is the part of *sql.DB the database check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DBChecker checks that the Postgres declaration store is reachable.
type DBChecker struct {
	db Pinger
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db Pinger) *DBChecker {
	return &DBChecker{db: db}
}

// Name identifies the check in readiness responses.
func (d *DBChecker) Name() string { return "database" }

// HealthCheck pings the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}
