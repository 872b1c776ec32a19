package encyclopediaRepository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"ProjectZukan/internal/entity"
	contextPkg "ProjectZukan/pkg/context"
	"github.com/sirupsen/logrus"
)

type csvRepository struct {
	mu            sync.Mutex
	entriesPath   string
	locationsPath string
	log           *logrus.Logger
}

// NewCSV prepares both files, creating the data directory and header rows when
// missing. An error here is meant to stop the process at startup.
func NewCSV(entriesPath, locationsPath string, log *logrus.Logger) (Repository, error) {
	r := &csvRepository{
		entriesPath:   entriesPath,
		locationsPath: locationsPath,
		log:           log,
	}

	for _, f := range []struct {
		path   string
		header []string
	}{
		{entriesPath, entryHeader},
		{locationsPath, locationHeader},
	} {
		if err := ensureFile(f.path, f.header); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func ensureFile(path string, header []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > 0 {
		return nil
	}

	row, err := encodeRow(header)
	if err != nil {
		return err
	}
	_, err = f.Write(row)
	return err
}

func encodeRow(record []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendRow writes the whole row with one Write call so concurrent appends never interleave inside a row.
func (r *csvRepository) appendRow(path string, header, record []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var out []byte
	if info.Size() == 0 {
		if out, err = encodeRow(header); err != nil {
			return err
		}
	}

	row, err := encodeRow(record)
	if err != nil {
		return err
	}
	out = append(out, row...)

	if _, err := f.Write(out); err != nil {
		return err
	}
	return nil
}

// scan calls fn for every data row. The header and rows with too few columns are skipped.
func (r *csvRepository) scan(path string, columns int, fn func(record []string) bool) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if first {
			first = false
			continue
		}
		if len(record) < columns {
			continue
		}
		if !fn(record) {
			return nil
		}
	}
}

func (r *csvRepository) AppendEntry(ctx context.Context, entry entity.EncyclopediaEntry) error {
	record := []string{
		NormalizeNewlines(entry.Place),
		NormalizeNewlines(entry.Name),
		NormalizeNewlines(entry.Image),
		NormalizeNewlines(entry.Description),
	}

	if err := r.appendRow(r.entriesPath, entryHeader, record); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"path":       r.entriesPath,
			"error":      err.Error(),
		}).Error("Failed to append encyclopedia entry")
		return err
	}
	return nil
}

func (r *csvRepository) ListByPlace(ctx context.Context, place string) ([]string, error) {
	names := []string{}
	place = NormalizeNewlines(place)
	err := r.scan(r.entriesPath, len(entryHeader), func(record []string) bool {
		if record[0] == place {
			names = append(names, record[1])
		}
		return true
	})
	if err != nil {
		r.logReadError(ctx, r.entriesPath, err)
		return nil, err
	}
	return names, nil
}

func (r *csvRepository) Get(ctx context.Context, place, name string) (entity.EncyclopediaEntry, error) {
	var (
		entry entity.EncyclopediaEntry
		found bool
	)
	place, name = NormalizeNewlines(place), NormalizeNewlines(name)
	err := r.scan(r.entriesPath, len(entryHeader), func(record []string) bool {
		if record[0] == place && record[1] == name {
			entry = entity.EncyclopediaEntry{
				Place:       record[0],
				Name:        record[1],
				Image:       record[2],
				Description: record[3],
			}
			found = true
			return false
		}
		return true
	})
	if err != nil {
		r.logReadError(ctx, r.entriesPath, err)
		return entity.EncyclopediaEntry{}, err
	}
	if !found {
		return entity.EncyclopediaEntry{}, ErrEntryNotFound
	}
	return entry, nil
}

// ListPlaces returns distinct places in first-seen order.
func (r *csvRepository) ListPlaces(ctx context.Context) ([]string, error) {
	places := []string{}
	seen := map[string]struct{}{}
	err := r.scan(r.entriesPath, len(entryHeader), func(record []string) bool {
		if _, ok := seen[record[0]]; !ok {
			seen[record[0]] = struct{}{}
			places = append(places, record[0])
		}
		return true
	})
	if err != nil {
		r.logReadError(ctx, r.entriesPath, err)
		return nil, err
	}
	return places, nil
}

func (r *csvRepository) AppendLocation(ctx context.Context, record entity.LocationRecord) error {
	row := []string{
		strconv.FormatFloat(record.Lat, 'f', -1, 64),
		strconv.FormatFloat(record.Lon, 'f', -1, 64),
		record.Image,
	}

	if err := r.appendRow(r.locationsPath, locationHeader, row); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"path":       r.locationsPath,
			"error":      err.Error(),
		}).Error("Failed to append location record")
		return err
	}
	return nil
}

func (r *csvRepository) ListLocations(ctx context.Context) ([]entity.LocationRecord, error) {
	records := []entity.LocationRecord{}
	err := r.scan(r.locationsPath, len(locationHeader), func(row []string) bool {
		lat, errLat := strconv.ParseFloat(row[0], 64)
		lon, errLon := strconv.ParseFloat(row[1], 64)
		if errLat != nil || errLon != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"row":        row,
			}).Warn("Skipping malformed location row")
			return true
		}
		records = append(records, entity.LocationRecord{Lat: lat, Lon: lon, Image: row[2]})
		return true
	})
	if err != nil {
		r.logReadError(ctx, r.locationsPath, err)
		return nil, err
	}
	return records, nil
}

func (r *csvRepository) Close() error {
	return nil
}

func (r *csvRepository) logReadError(ctx context.Context, path string, err error) {
	r.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"path":       path,
		"error":      err.Error(),
	}).Error("Failed to read store file")
}
