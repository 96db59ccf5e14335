package reconcile

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
)

// Catalog resolves product descriptions from the product_catalog table,
// caching lookups for the lifetime of the driver. Unknown codes resolve to an
// empty description; the record is still written.
type Catalog struct {
	exec  *db.Executor
	log   *zap.SugaredLogger
	cache map[string]string
}

// NewCatalog creates a catalog resolver.
func NewCatalog(exec *db.Executor, log *zap.SugaredLogger) *Catalog {
	return &Catalog{exec: exec, log: log, cache: make(map[string]string)}
}

// Description returns the product description for a code, or "" when the
// catalog has no entry.
func (c *Catalog) Description(ctx context.Context, productCode string) string {
	if desc, ok := c.cache[productCode]; ok {
		return desc
	}

	var desc string
	err := c.exec.QueryRow(ctx,
		"SELECT description FROM product_catalog WHERE product_code = ?",
		productCode,
	).Scan(&desc)
	switch {
	case err == sql.ErrNoRows:
		c.log.Debugw("Product code not in catalog", "product_code", productCode)
		desc = ""
	case err != nil:
		c.log.Warnw("Catalog lookup failed", "product_code", productCode, "error", err)
		return ""
	}

	c.cache[productCode] = desc
	return desc
}
