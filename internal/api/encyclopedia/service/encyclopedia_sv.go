package encyclopediaService

import (
	"context"
	"errors"
	"image"
	"strings"

	"ProjectZukan/internal/api/encyclopedia"
	encyclopediaRepository "ProjectZukan/internal/api/encyclopedia/repository"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	contextPkg "ProjectZukan/pkg/context"
	"ProjectZukan/pkg/detector"
	"ProjectZukan/pkg/utils"
	"github.com/sirupsen/logrus"
)

// CreateEntry is all-or-nothing up to the description: a person in the photo, a
// missing subject or a failed generation leaves the store untouched.
func (s *encyclopediaService) CreateEntry(ctx context.Context, req encyclopedia.CreateEntryRequest) (encyclopedia.EntryResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	place := strings.TrimSpace(req.Place)

	if (req.Lat == nil) != (req.Lon == nil) {
		return encyclopedia.EntryResponse{}, encyclopedia.ErrInvalidLocation
	}

	img, err := utils.DecodeImage(req.Image)
	if err != nil {
		return encyclopedia.EntryResponse{}, encyclopedia.ErrInvalidImage
	}

	dets, err := s.personGate(ctx, img)
	if err != nil {
		return encyclopedia.EntryResponse{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		named := detector.FilterByConfidence(dets, s.cfg.ConfidenceThreshold)
		top, ok := detector.TopLabel(named, detector.PersonLabel)
		if !ok {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"place":      place,
				"detections": len(dets),
			}).Info("No nameable object in capture")
			return encyclopedia.EntryResponse{}, encyclopedia.ErrNoObjectDetected
		}
		name = top.Label
	}

	description, err := s.describer.Describe(ctx, name, place, req.Image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"place":      place,
			"name":       name,
			"error":      err.Error(),
		}).Warn("Description generation failed")
		return encyclopedia.EntryResponse{}, encyclopedia.ErrGenerationFailed
	}

	imageURI, err := s.images.Save(ctx, req.Image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store captured image")
		return encyclopedia.EntryResponse{}, encyclopedia.ErrStoreImage
	}

	entry := entity.EncyclopediaEntry{
		Place:       encyclopediaRepository.NormalizeNewlines(place),
		Name:        encyclopediaRepository.NormalizeNewlines(name),
		Image:       imageURI,
		Description: encyclopediaRepository.NormalizeNewlines(description),
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		s.discardImage(ctx, imageURI)
		return encyclopedia.EntryResponse{}, encyclopedia.ErrStoreWrite
	}

	resp := encyclopedia.NewEntryResponse(entry)
	resp.Source = s.describer.Source()
	resp.Detections = detector.FilterByConfidence(dets, s.cfg.ConfidenceThreshold)

	// The entry is already committed, so a failed location write is reported
	// alongside it rather than as an error.
	if req.Lat != nil && req.Lon != nil {
		record := entity.LocationRecord{Lat: *req.Lat, Lon: *req.Lon, Image: imageURI}
		if err := s.repo.AppendLocation(ctx, record); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"image":      imageURI,
				"error":      err.Error(),
			}).Error("Entry saved but location record failed")
			resp.Warning = encyclopedia.WarningLocationNotSaved
		} else {
			loc := encyclopedia.NewLocationResponse(record)
			resp.Location = &loc
		}
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"place":      place,
		"name":       name,
		"source":     resp.Source,
	}).Info("Encyclopedia entry created")

	return resp, nil
}

// personGate runs detection on a working-size copy and maps failures to domain errors.
func (s *encyclopediaService) personGate(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	requestID := contextPkg.GetRequestID(ctx)

	dets, err := detector.RejectPeople(ctx, s.detector, utils.FitWidth(img, s.cfg.WorkingWidth), s.cfg.PersonThreshold)
	switch {
	case errors.Is(err, detector.ErrPersonDetected):
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Info("Capture rejected, person detected")
		return nil, encyclopedia.ErrPersonDetected
	case err != nil:
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Person check failed")
		return nil, encyclopedia.ErrDetectionFailed
	}
	return dets, nil
}

func (s *encyclopediaService) discardImage(ctx context.Context, uri string) {
	if err := s.images.Delete(ctx, uri); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"image":      uri,
			"error":      err.Error(),
		}).Warn("Failed to remove orphaned image")
	}
}

func (s *encyclopediaService) ListNames(ctx context.Context, place string) ([]string, error) {
	names, err := s.repo.ListByPlace(ctx, strings.TrimSpace(place))
	if err != nil {
		return nil, encyclopedia.ErrStoreRead
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *encyclopediaService) GetEntry(ctx context.Context, place, name string) (entity.EncyclopediaEntry, error) {
	entry, err := s.repo.Get(ctx, place, name)
	if errors.Is(err, encyclopediaRepository.ErrEntryNotFound) {
		return entity.EncyclopediaEntry{}, encyclopedia.ErrEntryNotFound
	}
	if err != nil {
		return entity.EncyclopediaEntry{}, encyclopedia.ErrStoreRead
	}
	return entry, nil
}

func (s *encyclopediaService) ListPlaces(ctx context.Context) ([]string, error) {
	places, err := s.repo.ListPlaces(ctx)
	if err != nil {
		return nil, encyclopedia.ErrStoreRead
	}
	if places == nil {
		places = []string{}
	}
	return places, nil
}

func (s *encyclopediaService) ConfirmLocation(ctx context.Context, req encyclopedia.ConfirmLocationRequest) (entity.LocationRecord, error) {
	if req.Lat == nil || req.Lon == nil {
		return entity.LocationRecord{}, encyclopedia.ErrInvalidLocation
	}

	img, err := utils.DecodeImage(req.Image)
	if err != nil {
		return entity.LocationRecord{}, encyclopedia.ErrInvalidImage
	}

	if _, err := s.personGate(ctx, img); err != nil {
		return entity.LocationRecord{}, err
	}

	imageURI, err := s.images.Save(ctx, req.Image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to store captured image")
		return entity.LocationRecord{}, encyclopedia.ErrStoreImage
	}

	record := entity.LocationRecord{Lat: *req.Lat, Lon: *req.Lon, Image: imageURI}
	if err := s.repo.AppendLocation(ctx, record); err != nil {
		s.discardImage(ctx, imageURI)
		return entity.LocationRecord{}, encyclopedia.ErrStoreWrite
	}
	return record, nil
}

func (s *encyclopediaService) ListLocations(ctx context.Context) ([]entity.LocationRecord, error) {
	records, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, encyclopedia.ErrStoreRead
	}
	return records, nil
}

func (s *encyclopediaService) Suggest(ctx context.Context, place string) ([]describer.Suggestion, error) {
	suggester, ok := s.describer.(describer.ISuggester)
	if !ok {
		return nil, encyclopedia.ErrSuggestUnavailable
	}

	suggestions, err := suggester.Suggest(ctx, strings.TrimSpace(place), s.cfg.SuggestCount)
	if errors.Is(err, describer.ErrNotSupported) {
		return nil, encyclopedia.ErrSuggestUnavailable
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"place":      place,
			"error":      err.Error(),
		}).Warn("Suggestion generation failed")
		return nil, encyclopedia.ErrGenerationFailed
	}
	return suggestions, nil
}
