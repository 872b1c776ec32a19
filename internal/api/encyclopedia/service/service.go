package encyclopediaService

import (
	"context"

	"ProjectZukan/internal/api/encyclopedia"
	encyclopediaRepository "ProjectZukan/internal/api/encyclopedia/repository"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/detector"
	"ProjectZukan/pkg/storage"
	"github.com/sirupsen/logrus"
)

type IEncyclopediaService interface {
	CreateEntry(ctx context.Context, req encyclopedia.CreateEntryRequest) (encyclopedia.EntryResponse, error)
	ListNames(ctx context.Context, place string) ([]string, error)
	GetEntry(ctx context.Context, place, name string) (entity.EncyclopediaEntry, error)
	ListPlaces(ctx context.Context) ([]string, error)
	ConfirmLocation(ctx context.Context, req encyclopedia.ConfirmLocationRequest) (entity.LocationRecord, error)
	ListLocations(ctx context.Context) ([]entity.LocationRecord, error)
	Suggest(ctx context.Context, place string) ([]describer.Suggestion, error)
}

type Config struct {
	// PersonThreshold rejects captures with a person at or above this confidence.
	PersonThreshold float64
	// ConfidenceThreshold is the minimum confidence for naming an entry after a detection.
	ConfidenceThreshold float64
	// WorkingWidth downsizes uploads before detection.
	WorkingWidth int
	SuggestCount int
}

type encyclopediaService struct {
	log       *logrus.Logger
	repo      encyclopediaRepository.Repository
	detector  detector.IDetector
	describer describer.IDescriber
	images    storage.IImageStore
	cfg       Config
}

func New(
	log *logrus.Logger,
	repo encyclopediaRepository.Repository,
	det detector.IDetector,
	desc describer.IDescriber,
	images storage.IImageStore,
	cfg Config,
) IEncyclopediaService {
	if cfg.SuggestCount <= 0 {
		cfg.SuggestCount = 8
	}

	return &encyclopediaService{
		log:       log,
		repo:      repo,
		detector:  det,
		describer: desc,
		images:    images,
		cfg:       cfg,
	}
}
