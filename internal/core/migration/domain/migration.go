package domain

import (
	"time"
)

// Migration represents a migration aggregate root.
type Migration struct {
	ID       string
	Name     string
	Up       []SchemaChange
	Down     []SchemaChange
	Checksum string
}

// Destructive reports whether applying the migration may lose data.
func (m Migration) Destructive() bool {
	for _, c := range m.Up {
		if c.IsDestructive() {
			return true
		}
	}
	return false
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// Pending indicates the migration has not been applied.
	Pending MigrationStatus = "Pending"
	// Applied indicates the migration has been successfully applied.
	Applied MigrationStatus = "Applied"
	// Modified indicates the migration changed after it was applied.
	Modified MigrationStatus = "Modified"
)

// Record is a row of the migration history table.
type Record struct {
	ID        string
	Name      string
	Batch     int
	Checksum  string
	AppliedAt time.Time
}

// StatusEntry pairs a migration name with its status.
type StatusEntry struct {
	Name      string
	Status    MigrationStatus
	Batch     int
	AppliedAt *time.Time
}
