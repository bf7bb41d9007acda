package services

import (
	"context"
	"database/sql"
	"time"
)

// HealthService probes the database.
type HealthService struct {
	db      *sql.DB
	timeout time.Duration
}

func NewHealthService(db *sql.DB, timeout time.Duration) *HealthService {
	return &HealthService{db: db, timeout: timeout}
}

// Check runs a trivial query within the probe timeout.
func (h *HealthService) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var one int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
