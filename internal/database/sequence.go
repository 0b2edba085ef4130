package database

import (
	"fmt"

	"go-biz-agent/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextSequential mints the next human-readable id for a scope, e.g.
// ("movement:42", "m") -> "m001", "m002", ... The counter row is read
// under a row lock and bumped in the caller's transaction, so two
// concurrent writers can never get the same number. Must be called
// inside the transaction that persists the dependent row.
func NextSequential(tx *gorm.DB, scope, prefix string) (string, error) {
	// Make sure the counter row exists before locking it. The no-op
	// insert means two concurrent first writers for a scope land on the
	// same row and serialize on the lock below instead of colliding on
	// a duplicate-key create.
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Sequence{Scope: scope, Value: 0}).Error; err != nil {
		return "", err
	}

	var seq models.Sequence
	if err := ForUpdate(tx).Where("scope = ?", scope).First(&seq).Error; err != nil {
		return "", err
	}

	seq.Value++
	if err := tx.Model(&models.Sequence{}).Where("scope = ?", scope).
		Update("value", seq.Value).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d", prefix, seq.Value), nil
}
