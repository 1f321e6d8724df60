package service

import (
	"database/sql"

	"github.com/sunchandi/sunchandi-backend/internal/database"
)

// SystemService exposes process-level health information.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// CheckHealth verifies cache-store connectivity.
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}
