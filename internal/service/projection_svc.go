package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

const (
	researchSheet   = "Sightings"
	exportRowLimit  = 10000
	researchMaxPage = 1000
)

// ProjectionStore provides the read models over media items.
type ProjectionStore interface {
	MapPoints(ctx context.Context, f model.MapFilter) ([]model.MapPoint, error)
	Research(ctx context.Context, f model.ResearchFilter) ([]model.ResearchRecord, error)
	GetStats(ctx context.Context) (*model.StatsResponse, error)
}

// ProjectionService serves the map, research and stats views.
type ProjectionService struct {
	repo ProjectionStore
}

func NewProjectionService(repo ProjectionStore) *ProjectionService {
	return &ProjectionService{repo: repo}
}

// MapData returns geolocated sightings inside an optional bounding box.
func (s *ProjectionService) MapData(ctx context.Context, f model.MapFilter) ([]model.MapPoint, error) {
	if err := validateBounds(f); err != nil {
		return nil, err
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 || f.Limit > researchMaxPage {
		f.Limit = researchMaxPage
	}
	return s.repo.MapPoints(ctx, f)
}

// ResearchData returns flattened sightings for analysis.
func (s *ProjectionService) ResearchData(ctx context.Context, f model.ResearchFilter) ([]model.ResearchRecord, error) {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return nil, fmt.Errorf("%w: date_from is after date_to", ErrInvalidInput)
	}
	f.Species = strings.TrimSpace(f.Species)
	f.HealthStatus = strings.TrimSpace(f.HealthStatus)
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 || f.Limit > researchMaxPage {
		f.Limit = researchMaxPage
	}
	return s.repo.Research(ctx, f)
}

// Stats returns platform-wide totals.
func (s *ProjectionService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return s.repo.GetStats(ctx)
}

// ExportResearch writes the filtered research records to w as an xlsx
// workbook and returns the number of data rows.
func (s *ProjectionService) ExportResearch(ctx context.Context, f model.ResearchFilter, w io.Writer) (int, error) {
	f.Skip = 0
	f.Limit = exportRowLimit
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return 0, fmt.Errorf("%w: date_from is after date_to", ErrInvalidInput)
	}
	records, err := s.repo.Research(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := WriteResearchWorkbook(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

var researchHeader = []any{
	"ID", "Latitude", "Longitude", "Sighting Time", "Uploaded At",
	"Species", "Health Status", "AI Confidence", "Community Validated", "Consensus Score", "File URL",
}

// WriteResearchWorkbook renders records as a single-sheet workbook.
func WriteResearchWorkbook(w io.Writer, records []model.ResearchRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", researchSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(researchSheet, "A1", &researchHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			rec.ID,
			floatOrBlank(rec.Latitude),
			floatOrBlank(rec.Longitude),
			timeOrBlank(rec.SightingTimestamp),
			rec.UploadedAt.UTC().Format(time.RFC3339),
			stringOrBlank(rec.FinalSpecies),
			stringOrBlank(rec.FinalHealthStatus),
			floatOrBlank(rec.AISpeciesConfidence),
			rec.IsCommunityValidated,
			rec.ConsensusScore,
			rec.FileURL,
		}
		if err := f.SetSheetRow(researchSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func validateBounds(f model.MapFilter) error {
	for _, v := range []*float64{f.MinLat, f.MaxLat} {
		if v != nil && (*v < -90 || *v > 90) {
			return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
		}
	}
	for _, v := range []*float64{f.MinLng, f.MaxLng} {
		if v != nil && (*v < -180 || *v > 180) {
			return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
		}
	}
	if f.MinLat != nil && f.MaxLat != nil && *f.MinLat > *f.MaxLat {
		return fmt.Errorf("%w: min_lat is greater than max_lat", ErrInvalidInput)
	}
	if f.MinLng != nil && f.MaxLng != nil && *f.MinLng > *f.MaxLng {
		return fmt.Errorf("%w: min_lng is greater than max_lng", ErrInvalidInput)
	}
	return nil
}

func floatOrBlank(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func stringOrBlank(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeOrBlank(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
