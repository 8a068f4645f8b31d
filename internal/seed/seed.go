// Package seed provisions the baseline rows a self-hosted deployment needs
// out of the box.
package seed

import "gorm.io/gorm"

// EnsureDefaultSchool inserts the configured school row when it does not
// exist yet, so single-school deployments work without an external tenant
// resolver.
func EnsureDefaultSchool(db *gorm.DB, schoolID int64) error {
	return db.Exec(
		`INSERT INTO schools (id, name) VALUES (?, 'Default School')
		 ON CONFLICT (id) DO NOTHING`,
		schoolID,
	).Error
}
