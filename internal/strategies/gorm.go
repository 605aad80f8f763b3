package strategies

import (
	"database/sql"
	"fmt"

	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm wraps an existing pool in a gorm handle. The pool is shared, so
// cache resets on it apply to the gorm strategies too.
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	g, err := gorm.Open(gormlite.OpenDB(db), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return g, nil
}
