package store

import (
	"crypto/sha256"
	"encoding/hex"

	"gorm.io/gorm/clause"

	"github.com/luasem/luasem/internal/index"
)

// HashText returns the content hash SaveSnapshot/Matches compare
// against: a file's exact decoded text, so any edit (including a
// whitespace-only one) invalidates the snapshot. sha256 is the
// standard library's own hash — no pack library offers content
// hashing, and pulling one in for a single `Sum` call would add a
// dependency this package can do without.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SaveSnapshot upserts path's current (hash, generation, class) triple.
func (s *Store) SaveSnapshot(path, hash string, generation uint64, class index.WorkspaceClass) error {
	row := FileSnapshot{Path: path, ContentHash: hash, Generation: generation, Class: uint8(class)}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_hash", "generation", "class", "updated_at"}),
	}).Create(&row).Error
}

// Snapshot returns path's last recorded snapshot, if any.
func (s *Store) Snapshot(path string) (FileSnapshot, bool, error) {
	var row FileSnapshot
	err := s.db.Where("path = ?", path).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return FileSnapshot{}, false, nil
		}
		return FileSnapshot{}, false, err
	}
	return row, true, nil
}

// Matches reports whether text's hash still matches path's recorded
// snapshot — a true result lets a caller skip re-running the analysis
// pipeline entirely and instead warm-start straight from
// LoadProperties.
func (s *Store) Matches(path, text string) (bool, error) {
	row, ok, err := s.Snapshot(path)
	if err != nil || !ok {
		return false, err
	}
	return row.ContentHash == HashText(text), nil
}
