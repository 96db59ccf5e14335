package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogResolvesSeededCodes(t *testing.T) {
	exec := newTestExec(t)
	catalog := NewCatalog(exec, zap.NewNop().Sugar())

	assert.Equal(t, "Round can 73mm, lacquered",
		catalog.Description(context.Background(), "P-1001"))
	assert.Equal(t, "Oval can 105mm, lacquered",
		catalog.Description(context.Background(), "P-3001"))
}

func TestCatalogUnknownCodeIsEmpty(t *testing.T) {
	exec := newTestExec(t)
	catalog := NewCatalog(exec, zap.NewNop().Sugar())

	assert.Empty(t, catalog.Description(context.Background(), "P-9999"))
}

func TestCatalogCachesLookups(t *testing.T) {
	exec := newTestExec(t)
	catalog := NewCatalog(exec, zap.NewNop().Sugar())
	ctx := context.Background()

	require.Equal(t, "Round can 99mm, plain", catalog.Description(ctx, "P-2002"))

	// Catalog edits after the first lookup are not observed
	require.NoError(t, exec.Update(ctx,
		"UPDATE product_catalog SET description = ? WHERE product_code = ?",
		"changed", "P-2002"))
	assert.Equal(t, "Round can 99mm, plain", catalog.Description(ctx, "P-2002"))
}
