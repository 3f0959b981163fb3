// Package repo holds the shared persistence plumbing the issuance and
// reconciliation repositories are built on.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base wraps the GORM connection a domain repository queries through.
type Base struct {
	db *gorm.DB
}

// NewBase binds a repository base to the provided connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns a fresh session bound to ctx. Each call starts from a clean
// statement, so clauses chained by one query never leak into the next.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db.Session(&gorm.Session{NewDB: true})
	}
	return b.db.WithContext(ctx)
}
