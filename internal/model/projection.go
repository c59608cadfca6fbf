package model

import "time"

// MapPoint is one geolocated sighting on the map view.
type MapPoint struct {
	ID               int64   `json:"id"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FileURL          string  `json:"fileUrl"`
	AISpeciesGuess   *string `json:"aiSpeciesGuess,omitempty"`
	AIHealthGuess    *string `json:"aiHealthGuess,omitempty"`
	ConsensusSpecies *string `json:"consensusSpecies,omitempty"`
	ConsensusHealth  *string `json:"consensusHealth,omitempty"`
	IsValidated      bool    `json:"isCommunityValidated"`
}

// MapFilter bounds a map query.
type MapFilter struct {
	MinLat, MaxLat *float64
	MinLng, MaxLng *float64
	Skip, Limit    int
}

// ResearchRecord is a flattened sighting for research consumers. Final
// fields prefer the community consensus and fall back to the AI guess.
type ResearchRecord struct {
	ID                   int64      `json:"id"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	SightingTimestamp    *time.Time `json:"sightingTimestamp,omitempty"`
	UploadedAt           time.Time  `json:"uploadedAt"`
	FinalSpecies         *string    `json:"finalSpecies,omitempty"`
	FinalHealthStatus    *string    `json:"finalHealthStatus,omitempty"`
	AISpeciesConfidence  *float64   `json:"aiSpeciesConfidence,omitempty"`
	IsCommunityValidated bool       `json:"isCommunityValidated"`
	ConsensusScore       int        `json:"consensusScore"`
	FileURL              string     `json:"fileUrl"`
}

// ResearchFilter narrows research queries.
type ResearchFilter struct {
	Species       string
	HealthStatus  string
	DateFrom      *time.Time
	DateTo        *time.Time
	OnlyValidated bool
	Skip, Limit   int
}
