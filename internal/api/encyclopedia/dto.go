package encyclopedia

import (
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
)

type CreateEntryRequest struct {
	Place       string   `json:"place" validate:"required,max=128"`
	Name        string   `json:"name" validate:"omitempty,max=128"`
	Lat         *float64 `json:"lat" validate:"required_with=Lon,omitempty,latitude"`
	Lon         *float64 `json:"lon" validate:"required_with=Lat,omitempty,longitude"`
	ImageBase64 string   `json:"image_base64"`

	Image []byte `json:"-"`
}

type ConfirmLocationRequest struct {
	Lat         *float64 `json:"lat" validate:"required,latitude"`
	Lon         *float64 `json:"lon" validate:"required,longitude"`
	ImageBase64 string   `json:"image_base64"`

	Image []byte `json:"-"`
}

type SuggestRequest struct {
	Place string `json:"place" validate:"required,max=128"`
}

// WarningLocationNotSaved marks a created entry whose location record could not be written.
const WarningLocationNotSaved = "LOCATION_NOT_SAVED"

type EntryResponse struct {
	Place       string             `json:"place"`
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Description string             `json:"description"`
	Source      string             `json:"source,omitempty"`
	Detections  []entity.Detection `json:"detections,omitempty"`
	Location    *LocationResponse  `json:"location,omitempty"`
	Warning     string             `json:"warning,omitempty"`
}

type NamesResponse struct {
	Place string   `json:"place"`
	Names []string `json:"names"`
}

type PlacesResponse struct {
	Places []string `json:"places"`
}

type SuggestResponse struct {
	Place        string                 `json:"place"`
	Encyclopedia []describer.Suggestion `json:"encyclopedia"`
}

type LocationResponse struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Image string  `json:"image"`
}

type LocationsResponse struct {
	Locations []LocationResponse `json:"locations"`
}

func NewEntryResponse(e entity.EncyclopediaEntry) EntryResponse {
	return EntryResponse{
		Place:       e.Place,
		Name:        e.Name,
		Image:       e.Image,
		Description: e.Description,
	}
}

func NewLocationResponse(l entity.LocationRecord) LocationResponse {
	return LocationResponse{Lat: l.Lat, Lon: l.Lon, Image: l.Image}
}
