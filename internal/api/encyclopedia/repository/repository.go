package encyclopediaRepository

import (
	"context"
	"errors"
	"strings"

	"ProjectZukan/internal/entity"
)

var ErrEntryNotFound = errors.New("entry not found")

// Repository is an append-only store for encyclopedia entries and location records.
// There are no updates or deletes and (place, name) uniqueness is not enforced.
type Repository interface {
	AppendEntry(ctx context.Context, entry entity.EncyclopediaEntry) error
	ListByPlace(ctx context.Context, place string) ([]string, error)
	Get(ctx context.Context, place, name string) (entity.EncyclopediaEntry, error)
	ListPlaces(ctx context.Context) ([]string, error)
	AppendLocation(ctx context.Context, record entity.LocationRecord) error
	ListLocations(ctx context.Context) ([]entity.LocationRecord, error)
	Close() error
}

var (
	entryHeader    = []string{"place", "name", "image", "description"}
	locationHeader = []string{"lat", "lon", "image"}
)

// NormalizeNewlines turns CRLF into LF. The CSV reader drops the CR of a quoted CRLF,
// so text is stored and looked up in this form to read back unchanged.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
