package store

import (
	"errors"
	"fmt"

	dbutil "github.com/router-for-me/CTFPlatform/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate")
)

// wrap maps gorm errors to store sentinels and annotates them with op.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: %s: %w", op, ErrNotFound)
	}
	if dbutil.IsUniqueViolation(err) {
		return fmt.Errorf("store: %s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
