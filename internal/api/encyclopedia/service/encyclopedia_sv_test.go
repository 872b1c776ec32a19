package encyclopediaService

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"ProjectZukan/internal/api/encyclopedia"
	encyclopediaRepository "ProjectZukan/internal/api/encyclopedia/repository"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/detector"
	"ProjectZukan/pkg/storage"
	"ProjectZukan/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	dets []entity.Detection
	err  error
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return detector.FilterByConfidence(d.dets, threshold), nil
}

type stubDescriber struct {
	text  string
	err   error
	calls int
}

func (d *stubDescriber) Describe(ctx context.Context, objectName, place string, image []byte) (string, error) {
	d.calls++
	return d.text, d.err
}

func (d *stubDescriber) Source() string { return describer.SourceLLM }

type stubSuggester struct {
	stubDescriber
	suggestions []describer.Suggestion
	err         error
}

func (s *stubSuggester) Suggest(ctx context.Context, place string, n int) ([]describer.Suggestion, error) {
	return s.suggestions, s.err
}

type fixture struct {
	svc       IEncyclopediaService
	repo      encyclopediaRepository.Repository
	entries   string
	locations string
	uploads   string
}

func newFixture(t *testing.T, det detector.IDetector, desc describer.IDescriber) fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	f := fixture{
		entries:   filepath.Join(dir, "data", "Encyclopedia.csv"),
		locations: filepath.Join(dir, "data", "Location.csv"),
		uploads:   filepath.Join(dir, "uploads"),
	}

	repo, err := encyclopediaRepository.NewCSV(f.entries, f.locations, logger)
	require.NoError(t, err)
	images, err := storage.NewLocalStore(f.uploads, "/uploads", utils.New())
	require.NoError(t, err)

	f.repo = repo
	f.svc = New(logger, repo, det, desc, images, Config{
		PersonThreshold:     0.5,
		ConfidenceThreshold: 0.5,
		WorkingWidth:        640,
	})
	return f
}

func (f fixture) assertNothingWritten(t *testing.T) {
	t.Helper()

	data, err := os.ReadFile(f.entries)
	require.NoError(t, err)
	require.Equal(t, "place,name,image,description\n", string(data))

	data, err = os.ReadFile(f.locations)
	require.NoError(t, err)
	require.Equal(t, "lat,lon,image\n", string(data))

	files, err := os.ReadDir(f.uploads)
	require.NoError(t, err)
	require.Empty(t, files)
}

func photo(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 24))))
	return buf.Bytes()
}

func ptr(f float64) *float64 { return &f }

func TestCreateEntry_GardenSparrow(t *testing.T) {
	desc := &stubDescriber{text: "a small bird"}
	f := newFixture(t, &stubDetector{dets: []entity.Detection{{Label: "bird", Confidence: 0.8}}}, desc)
	ctx := context.Background()

	resp, err := f.svc.CreateEntry(ctx, encyclopedia.CreateEntryRequest{
		Place: "garden",
		Name:  "sparrow",
		Image: photo(t),
	})
	require.NoError(t, err)
	require.Equal(t, "garden", resp.Place)
	require.Equal(t, "sparrow", resp.Name)
	require.Equal(t, "a small bird", resp.Description)
	require.Equal(t, describer.SourceLLM, resp.Source)
	require.Nil(t, resp.Location)

	names, err := f.svc.ListNames(ctx, "garden")
	require.NoError(t, err)
	require.Equal(t, []string{"sparrow"}, names)

	entry, err := f.svc.GetEntry(ctx, "garden", "sparrow")
	require.NoError(t, err)
	require.Equal(t, resp.Image, entry.Image)
	require.Equal(t, "a small bird", entry.Description)

	_, err = os.Stat(filepath.Join(f.uploads, filepath.Base(entry.Image)))
	require.NoError(t, err)
}

func TestCreateEntry_NamesAfterTopNonPersonDetection(t *testing.T) {
	det := &stubDetector{dets: []entity.Detection{
		{Label: "person", Confidence: 0.3},
		{Label: "bench", Confidence: 0.6},
		{Label: "bird", Confidence: 0.9},
		{Label: "kite", Confidence: 0.2},
	}}
	f := newFixture(t, det, &stubDescriber{text: "text"})

	resp, err := f.svc.CreateEntry(context.Background(), encyclopedia.CreateEntryRequest{
		Place: "park",
		Image: photo(t),
		Lat:   ptr(35.0),
		Lon:   ptr(139.0),
	})
	require.NoError(t, err)
	require.Equal(t, "bird", resp.Name)
	require.Len(t, resp.Detections, 2)
	require.NotNil(t, resp.Location)

	locs, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []entity.LocationRecord{{Lat: 35.0, Lon: 139.0, Image: resp.Image}}, locs)
}

type failingLocations struct {
	encyclopediaRepository.Repository
}

func (r failingLocations) AppendLocation(ctx context.Context, record entity.LocationRecord) error {
	return errors.New("disk full")
}

func TestCreateEntry_LocationFailureKeepsEntry(t *testing.T) {
	det := &stubDetector{dets: []entity.Detection{{Label: "bird", Confidence: 0.8}}}
	desc := &stubDescriber{text: "a small bird"}
	f := newFixture(t, det, desc)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	images, err := storage.NewLocalStore(f.uploads, "/uploads", utils.New())
	require.NoError(t, err)
	svc := New(logger, failingLocations{f.repo}, det, desc, images, Config{
		PersonThreshold:     0.5,
		ConfidenceThreshold: 0.5,
		WorkingWidth:        640,
	})
	ctx := context.Background()

	resp, err := svc.CreateEntry(ctx, encyclopedia.CreateEntryRequest{
		Place: "garden",
		Name:  "sparrow",
		Image: photo(t),
		Lat:   ptr(35.0),
		Lon:   ptr(139.0),
	})
	require.NoError(t, err)
	require.Equal(t, encyclopedia.WarningLocationNotSaved, resp.Warning)
	require.Nil(t, resp.Location)

	entry, err := svc.GetEntry(ctx, "garden", "sparrow")
	require.NoError(t, err)
	require.Equal(t, resp.Image, entry.Image)

	locs, err := f.repo.ListLocations(ctx)
	require.NoError(t, err)
	require.Empty(t, locs)
}

func TestCreateEntry_DescriptionCRLFMatchesStoredEntry(t *testing.T) {
	f := newFixture(t, &stubDetector{}, &stubDescriber{text: "line one\r\nline two"})
	ctx := context.Background()

	resp, err := f.svc.CreateEntry(ctx, encyclopedia.CreateEntryRequest{Place: "garden", Name: "snail", Image: photo(t)})
	require.NoError(t, err)
	require.Equal(t, "line one\nline two", resp.Description)

	entry, err := f.svc.GetEntry(ctx, "garden", "snail")
	require.NoError(t, err)
	require.Equal(t, resp.Description, entry.Description)
}

func TestCreateEntry_RejectionsAreEffectFree(t *testing.T) {
	tests := []struct {
		name    string
		det     *stubDetector
		desc    *stubDescriber
		req     encyclopedia.CreateEntryRequest
		wantErr error
	}{
		{
			name:    "person in photo",
			det:     &stubDetector{dets: []entity.Detection{{Label: "person", Confidence: 0.92}, {Label: "dog", Confidence: 0.9}}},
			desc:    &stubDescriber{text: "never used"},
			req:     encyclopedia.CreateEntryRequest{Place: "park", Name: "dog", Lat: ptr(1), Lon: ptr(2)},
			wantErr: encyclopedia.ErrPersonDetected,
		},
		{
			name:    "generation failure",
			det:     &stubDetector{dets: []entity.Detection{{Label: "dog", Confidence: 0.9}}},
			desc:    &stubDescriber{err: describer.ErrGeneration},
			req:     encyclopedia.CreateEntryRequest{Place: "park", Lat: ptr(1), Lon: ptr(2)},
			wantErr: encyclopedia.ErrGenerationFailed,
		},
		{
			name:    "nothing to name",
			det:     &stubDetector{dets: []entity.Detection{{Label: "dog", Confidence: 0.3}}},
			desc:    &stubDescriber{text: "never used"},
			req:     encyclopedia.CreateEntryRequest{Place: "park"},
			wantErr: encyclopedia.ErrNoObjectDetected,
		},
		{
			name:    "detector down",
			det:     &stubDetector{err: errors.New("sidecar unreachable")},
			desc:    &stubDescriber{text: "never used"},
			req:     encyclopedia.CreateEntryRequest{Place: "park", Name: "dog"},
			wantErr: encyclopedia.ErrDetectionFailed,
		},
		{
			name:    "half a location",
			det:     &stubDetector{},
			desc:    &stubDescriber{text: "never used"},
			req:     encyclopedia.CreateEntryRequest{Place: "park", Name: "dog", Lat: ptr(1)},
			wantErr: encyclopedia.ErrInvalidLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.det, tt.desc)
			tt.req.Image = photo(t)

			_, err := f.svc.CreateEntry(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			f.assertNothingWritten(t)

			if !errors.Is(tt.wantErr, encyclopedia.ErrGenerationFailed) {
				require.Zero(t, tt.desc.calls)
			}
		})
	}
}

func TestCreateEntry_InvalidImage(t *testing.T) {
	f := newFixture(t, &stubDetector{}, &stubDescriber{text: "x"})

	_, err := f.svc.CreateEntry(context.Background(), encyclopedia.CreateEntryRequest{
		Place: "park",
		Name:  "dog",
		Image: []byte("not an image"),
	})
	require.ErrorIs(t, err, encyclopedia.ErrInvalidImage)
	f.assertNothingWritten(t)
}

func TestGetEntry_NotFound(t *testing.T) {
	f := newFixture(t, &stubDetector{}, &stubDescriber{})

	_, err := f.svc.GetEntry(context.Background(), "garden", "owl")
	require.ErrorIs(t, err, encyclopedia.ErrEntryNotFound)
}

func TestConfirmLocation(t *testing.T) {
	f := newFixture(t, &stubDetector{dets: []entity.Detection{{Label: "tree", Confidence: 0.7}}}, &stubDescriber{})

	record, err := f.svc.ConfirmLocation(context.Background(), encyclopedia.ConfirmLocationRequest{
		Lat:   ptr(43.06),
		Lon:   ptr(141.35),
		Image: photo(t),
	})
	require.NoError(t, err)
	require.InDelta(t, 43.06, record.Lat, 1e-9)

	locs, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []entity.LocationRecord{record}, locs)
}

func TestConfirmLocation_PersonRejected(t *testing.T) {
	f := newFixture(t, &stubDetector{dets: []entity.Detection{{Label: "person", Confidence: 0.5}}}, &stubDescriber{})

	_, err := f.svc.ConfirmLocation(context.Background(), encyclopedia.ConfirmLocationRequest{
		Lat:   ptr(1),
		Lon:   ptr(2),
		Image: photo(t),
	})
	require.ErrorIs(t, err, encyclopedia.ErrPersonDetected)
	f.assertNothingWritten(t)
}

func TestListPlaces(t *testing.T) {
	f := newFixture(t, &stubDetector{}, &stubDescriber{})
	ctx := context.Background()

	require.NoError(t, f.repo.AppendEntry(ctx, entity.EncyclopediaEntry{Place: "zoo", Name: "panda"}))
	require.NoError(t, f.repo.AppendEntry(ctx, entity.EncyclopediaEntry{Place: "garden", Name: "sparrow"}))
	require.NoError(t, f.repo.AppendEntry(ctx, entity.EncyclopediaEntry{Place: "zoo", Name: "lion"}))

	places, err := f.svc.ListPlaces(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"zoo", "garden"}, places)
}

func TestSuggest(t *testing.T) {
	t.Run("local strategy", func(t *testing.T) {
		f := newFixture(t, &stubDetector{}, describer.NewLocal())
		_, err := f.svc.Suggest(context.Background(), "zoo")
		require.ErrorIs(t, err, encyclopedia.ErrSuggestUnavailable)
	})

	t.Run("hosted strategy", func(t *testing.T) {
		want := []describer.Suggestion{{Name: "パンダ", Text: "白と黒"}}
		f := newFixture(t, &stubDetector{}, &stubSuggester{suggestions: want})
		got, err := f.svc.Suggest(context.Background(), "zoo")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("hosted failure", func(t *testing.T) {
		f := newFixture(t, &stubDetector{}, &stubSuggester{err: describer.ErrGeneration})
		_, err := f.svc.Suggest(context.Background(), "zoo")
		require.ErrorIs(t, err, encyclopedia.ErrGenerationFailed)
	})
}
