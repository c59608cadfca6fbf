package model

import "time"

// ProcessingStatus tracks the AI classification lifecycle of a media item.
type ProcessingStatus string

const (
	StatusPending         ProcessingStatus = "pending"
	StatusProcessing      ProcessingStatus = "processing"
	StatusCompleted       ProcessingStatus = "completed"
	StatusFailedNetwork   ProcessingStatus = "failed_network"
	StatusFailedParse     ProcessingStatus = "failed_ai_parse"
	StatusFailedUnhandled ProcessingStatus = "failed_unhandled"
)

// MediaItem is an uploaded sighting together with its classification record.
type MediaItem struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	ObjectKey   string     `json:"-"`
	FileURL     string     `json:"fileUrl"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	Checksum    string     `json:"-"`
	Description *string    `json:"description,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CapturedAt  *time.Time `json:"sightingTimestamp,omitempty"`

	ProcessingStatus ProcessingStatus `json:"aiProcessingStatus"`

	AISpeciesGuess       *string  `json:"aiSpeciesGuess,omitempty"`
	AICommonName         *string  `json:"aiCommonName,omitempty"`
	AISpeciesConfidence  *float64 `json:"aiSpeciesConfidence,omitempty"`
	AIJustification      *string  `json:"aiJustification,omitempty"`
	AIHealthGuess        *string  `json:"aiHealthGuess,omitempty"`
	AIHealthObservations *string  `json:"aiHealthObservations,omitempty"`
	AIHabitat            *string  `json:"aiHabitat,omitempty"`
	AIWaterClarity       *string  `json:"aiWaterClarity,omitempty"`
	AIEnvironmentNotes   *string  `json:"aiEnvironmentNotes,omitempty"`
	AIOtherSpecies       []string `json:"aiOtherSpecies"`
	AIModelVersion       *string  `json:"aiModelVersion,omitempty"`

	ConsensusSpecies     *string    `json:"consensusSpecies,omitempty"`
	ConsensusHealth      *string    `json:"consensusHealth,omitempty"`
	ConsensusScore       int        `json:"consensusScore"`
	IsCommunityValidated bool       `json:"isCommunityValidated"`
	ConsensusEvaluatedAt *time.Time `json:"consensusEvaluatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMedia holds the fields captured at upload time.
type NewMedia struct {
	UserID      int64
	ObjectKey   string
	FileURL     string
	ContentType string
	SizeBytes   int64
	Checksum    string
	Description *string
	Latitude    *float64
	Longitude   *float64
	CapturedAt  *time.Time
}

// AIResult is the classifier's structured output for one image.
type AIResult struct {
	ScientificName     string   `json:"scientificName"`
	CommonName         string   `json:"commonName"`
	Confidence         float64  `json:"confidence"`
	Justification      string   `json:"justification"`
	HealthStatus       string   `json:"healthStatus"`
	HealthObservations string   `json:"healthObservations"`
	HabitatType        string   `json:"habitatType"`
	WaterClarity       string   `json:"waterClarity"`
	EnvironmentNotes   string   `json:"environmentNotes"`
	OtherSpecies       []string `json:"otherSpecies"`
	ModelVersion       string   `json:"modelVersion"`
}

// SpeciesGuess is the label the consensus engine treats as the AI's species
// guess: the common name when present, otherwise the scientific name.
func (r *AIResult) SpeciesGuess() string {
	if r.CommonName != "" {
		return r.CommonName
	}
	return r.ScientificName
}

// ConsensusResult is the evaluator's output for one media item.
type ConsensusResult struct {
	Score            int     `json:"score"`
	ConsensusSpecies *string `json:"consensusSpecies"`
	ConsensusHealth  *string `json:"consensusHealth"`
	IsValidated      bool    `json:"isCommunityValidated"`
}

// Classification is the slice of a media item the consensus engine reads and
// writes.
type Classification struct {
	MediaItemID    int64   `json:"mediaItemId"`
	AISpeciesGuess *string `json:"aiSpeciesGuess"`
	AIHealthGuess  *string `json:"aiHealthGuess"`
	ConsensusResult
}

// MediaListResponse is a page of media items.
type MediaListResponse struct {
	Items []MediaItem `json:"items"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}
