// Package repository implements the persistence interfaces consumed by the
// services, on top of gorm (Postgres) and an in-process map store.
package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/twiller/internal/common"
)

// translate maps gorm errors onto the shared sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, common.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
