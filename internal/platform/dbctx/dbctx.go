package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Handle returns the transaction when set, otherwise the base handle, bound to Ctx.
func (c Context) Handle(base *gorm.DB) *gorm.DB {
	h := c.Tx
	if h == nil {
		h = base
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return h.WithContext(ctx)
}
