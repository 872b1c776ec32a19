package encyclopediaRepository

import (
	"context"
	"io"
	"os"
	"testing"

	"ProjectZukan/database/postgres"
	"ProjectZukan/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Runs only against a disposable database: ZUKAN_TEST_DATABASE_URL=postgres://...
func TestPostgres_GardenSparrowRoundTrip(t *testing.T) {
	dsn := os.Getenv("ZUKAN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ZUKAN_TEST_DATABASE_URL not set")
	}

	db, err := postgres.New(dsn)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx := context.Background()
	repo, err := NewPostgres(ctx, db, logger)
	require.NoError(t, err)
	defer repo.Close()

	_, err = db.ExecContext(ctx, "TRUNCATE encyclopedia_entries, location_records")
	require.NoError(t, err)

	entry := entity.EncyclopediaEntry{Place: "garden", Name: "sparrow", Image: "img1.jpg", Description: "a small bird"}
	require.NoError(t, repo.AppendEntry(ctx, entry))

	names, err := repo.ListByPlace(ctx, "garden")
	require.NoError(t, err)
	require.Equal(t, []string{"sparrow"}, names)

	got, err := repo.Get(ctx, "garden", "sparrow")
	require.NoError(t, err)
	require.Equal(t, entry, got)

	_, err = repo.Get(ctx, "garden", "owl")
	require.ErrorIs(t, err, ErrEntryNotFound)

	places, err := repo.ListPlaces(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"garden"}, places)

	loc := entity.LocationRecord{Lat: 35.7, Lon: 139.7, Image: "img1.jpg"}
	require.NoError(t, repo.AppendLocation(ctx, loc))
	locs, err := repo.ListLocations(ctx)
	require.NoError(t, err)
	require.Equal(t, []entity.LocationRecord{loc}, locs)
}
