package reconcile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/reconcile"
	"jobglob-engine/internal/store"
)

func TestEndToEndWithSQLite(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	acme, err := db.AddCompany(ctx, "Acme Inc.", "")
	require.NoError(t, err)

	l123 := &domain.Listing{CompanyID: acme.ID, Position: "Engineer", URL: "https://boards.vendor.io/acme/123"}
	l456 := &domain.Listing{CompanyID: acme.ID, Position: "Designer", URL: "https://boards.vendor.io/acme/456"}
	require.NoError(t, db.InsertListing(ctx, l123))
	require.NoError(t, db.InsertListing(ctx, l456))

	e := reconcile.New(db, nil)

	// /456 vanished from a clean scrape
	res, err := e.Reconcile(ctx, acme.ID, domain.Snapshot{
		Postings: []domain.Posting{{URL: "https://boards.vendor.io/acme/123", Position: "Engineer"}},
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Result{MarkedDead: 1}, res)

	// /456 comes back
	res, err = e.Reconcile(ctx, acme.ID, domain.Snapshot{
		Postings: []domain.Posting{
			{URL: "https://boards.vendor.io/acme/123/"},
			{URL: "https://boards.vendor.io/acme/456"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Result{Resurrected: 1}, res)

	ls, err := db.CompanyListings(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, ls, 2)
	for _, l := range ls {
		assert.True(t, l.Alive, l.URL)
		assert.Nil(t, l.RemovedAt)
	}
}
