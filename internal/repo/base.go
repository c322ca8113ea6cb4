package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base holds the connection a catalog repository queries through. A Base
// built from a transaction routes every query into that transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection scoped to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bind rebinds the base to tx, typically a transaction handle from
// db.Client.WithTx.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}
