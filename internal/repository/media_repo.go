package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

type MediaRepo struct {
	db DBTX
}

func NewMediaRepo(db DBTX) *MediaRepo {
	return &MediaRepo{db: db}
}

const mediaColumns = `id, user_id, object_key, file_url, content_type, size_bytes, checksum,
	description, latitude, longitude, captured_at, processing_status,
	ai_species_guess, ai_common_name, ai_species_confidence, ai_justification,
	ai_health_guess, ai_health_observations, ai_habitat, ai_water_clarity,
	ai_environment_notes, ai_other_species, ai_model_version,
	consensus_species, consensus_health, consensus_score, is_community_validated,
	consensus_evaluated_at, created_at, updated_at`

// Create inserts a freshly uploaded item in the pending state.
func (r *MediaRepo) Create(ctx context.Context, m model.NewMedia) (*model.MediaItem, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO media_items
			(user_id, object_key, file_url, content_type, size_bytes, checksum,
			 description, latitude, longitude, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+mediaColumns,
		m.UserID, m.ObjectKey, m.FileURL, m.ContentType, m.SizeBytes, m.Checksum,
		m.Description, m.Latitude, m.Longitude, m.CapturedAt,
	)
	return scanMedia(row)
}

// GetByID returns a single media item.
func (r *MediaRepo) GetByID(ctx context.Context, id int64) (*model.MediaItem, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE id = $1`, id)
	m, err := scanMedia(row)
	return m, notFound(err)
}

// List returns a page of items, newest first. A non-empty species filter
// matches the AI guess or the community consensus, case-insensitively.
func (r *MediaRepo) List(ctx context.Context, species string, skip, limit int) ([]model.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items`
	args := []any{}
	if species != "" {
		args = append(args, "%"+species+"%")
		query += ` WHERE ai_species_guess ILIKE $1 OR consensus_species ILIKE $1`
	}
	args = append(args, limit, skip)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.queryMedia(ctx, query, args...)
}

// ListByUser returns a page of one uploader's items, newest first.
func (r *MediaRepo) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]model.MediaItem, error) {
	return r.queryMedia(ctx, `
		SELECT `+mediaColumns+`
		FROM media_items
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, skip)
}

// FindClassification loads the fields the consensus engine works on.
func (r *MediaRepo) FindClassification(ctx context.Context, id int64) (*model.Classification, error) {
	var c model.Classification
	err := r.db.QueryRow(ctx, `
		SELECT id, ai_species_guess, ai_health_guess,
		       consensus_score, consensus_species, consensus_health, is_community_validated
		FROM media_items
		WHERE id = $1`, id,
	).Scan(
		&c.MediaItemID, &c.AISpeciesGuess, &c.AIHealthGuess,
		&c.Score, &c.ConsensusSpecies, &c.ConsensusHealth, &c.IsValidated,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SaveConsensus overwrites all four consensus fields in one statement.
func (r *MediaRepo) SaveConsensus(ctx context.Context, id int64, res model.ConsensusResult) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE media_items SET
			consensus_score = $2,
			consensus_species = $3,
			consensus_health = $4,
			is_community_validated = $5,
			consensus_evaluated_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`,
		id, res.Score, res.ConsensusSpecies, res.ConsensusHealth, res.IsValidated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAIResult records the classifier output. The ai_* fields are written
// only once; applied is false if the item already had a result.
func (r *MediaRepo) SaveAIResult(ctx context.Context, id int64, res model.AIResult) (applied bool, err error) {
	other := res.OtherSpecies
	if other == nil {
		other = []string{}
	}
	otherJSON, err := json.Marshal(other)
	if err != nil {
		return false, fmt.Errorf("encode other species: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE media_items SET
			processing_status = $2,
			ai_species_guess = $3,
			ai_common_name = $4,
			ai_species_confidence = $5,
			ai_justification = $6,
			ai_health_guess = $7,
			ai_health_observations = $8,
			ai_habitat = $9,
			ai_water_clarity = $10,
			ai_environment_notes = $11,
			ai_other_species = $12,
			ai_model_version = $13,
			updated_at = NOW()
		WHERE id = $1 AND ai_species_guess IS NULL`,
		id, string(model.StatusCompleted),
		res.SpeciesGuess(), nullIfEmpty(res.CommonName), res.Confidence, nullIfEmpty(res.Justification),
		nullIfEmpty(res.HealthStatus), nullIfEmpty(res.HealthObservations),
		nullIfEmpty(res.HabitatType), nullIfEmpty(res.WaterClarity), nullIfEmpty(res.EnvironmentNotes),
		otherJSON, nullIfEmpty(res.ModelVersion),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus updates the processing status alone.
func (r *MediaRepo) SetStatus(ctx context.Context, id int64, status model.ProcessingStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE media_items SET processing_status = $2, updated_at = NOW()
		WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStale returns ids of items whose votes changed after their consensus
// was last evaluated, oldest change first.
func (r *MediaRepo) ListStale(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM media_items
		WHERE votes_changed_at IS NOT NULL
		  AND votes_changed_at > COALESCE(consensus_evaluated_at, '-infinity'::timestamptz)
		ORDER BY votes_changed_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// MapPoints returns geolocated items, optionally inside a bounding box.
func (r *MediaRepo) MapPoints(ctx context.Context, f model.MapFilter) ([]model.MapPoint, error) {
	conds := []string{"latitude IS NOT NULL", "longitude IS NOT NULL"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.MinLat != nil {
		add("latitude >= $%d", *f.MinLat)
	}
	if f.MaxLat != nil {
		add("latitude <= $%d", *f.MaxLat)
	}
	if f.MinLng != nil {
		add("longitude >= $%d", *f.MinLng)
	}
	if f.MaxLng != nil {
		add("longitude <= $%d", *f.MaxLng)
	}
	args = append(args, f.Limit, f.Skip)

	query := fmt.Sprintf(`
		SELECT id, latitude, longitude, file_url, ai_species_guess, ai_health_guess,
		       consensus_species, consensus_health, is_community_validated
		FROM media_items
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []model.MapPoint{}
	for rows.Next() {
		var p model.MapPoint
		if err := rows.Scan(
			&p.ID, &p.Latitude, &p.Longitude, &p.FileURL, &p.AISpeciesGuess, &p.AIHealthGuess,
			&p.ConsensusSpecies, &p.ConsensusHealth, &p.IsValidated,
		); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Research returns flattened records where the final species and health
// prefer the community consensus over the AI guess.
func (r *MediaRepo) Research(ctx context.Context, f model.ResearchFilter) ([]model.ResearchRecord, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Species != "" {
		add("COALESCE(consensus_species, ai_species_guess) ILIKE $%d", "%"+f.Species+"%")
	}
	if f.HealthStatus != "" {
		add("COALESCE(consensus_health, ai_health_guess) ILIKE $%d", "%"+f.HealthStatus+"%")
	}
	if f.DateFrom != nil {
		add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("created_at <= $%d", *f.DateTo)
	}
	if f.OnlyValidated {
		conds = append(conds, "is_community_validated")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Skip)

	query := fmt.Sprintf(`
		SELECT id, latitude, longitude, captured_at, created_at,
		       COALESCE(consensus_species, ai_species_guess),
		       COALESCE(consensus_health, ai_health_guess),
		       ai_species_confidence, is_community_validated, consensus_score, file_url
		FROM media_items
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.ResearchRecord{}
	for rows.Next() {
		var rec model.ResearchRecord
		if err := rows.Scan(
			&rec.ID, &rec.Latitude, &rec.Longitude, &rec.SightingTimestamp, &rec.UploadedAt,
			&rec.FinalSpecies, &rec.FinalHealthStatus,
			&rec.AISpeciesConfidence, &rec.IsCommunityValidated, &rec.ConsensusScore, &rec.FileURL,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetStats returns platform-wide totals.
func (r *MediaRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	var stats model.StatsResponse
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM media_items) AS total_media,
			(SELECT COUNT(*) FROM media_items WHERE is_community_validated) AS validated_media,
			(SELECT COUNT(*) FROM media_items WHERE processing_status IN ('pending', 'processing')) AS pending_ai,
			(SELECT COUNT(*) FROM validation_votes) AS total_votes,
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(DISTINCT user_id) FROM validation_votes
			  WHERE updated_at > NOW() - INTERVAL '7 days') AS active_voters_7d`,
	).Scan(
		&stats.TotalMedia, &stats.ValidatedMedia, &stats.PendingAI,
		&stats.TotalVotes, &stats.TotalUsers, &stats.ActiveVoters7d,
	)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(consensus_species, ai_species_guess) AS species, COUNT(*)
		FROM media_items
		WHERE COALESCE(consensus_species, ai_species_guess) IS NOT NULL
		GROUP BY species
		ORDER BY COUNT(*) DESC
		LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.TopSpecies = make(map[string]int)
	for rows.Next() {
		var species string
		var count int
		if err := rows.Scan(&species, &count); err != nil {
			return nil, err
		}
		stats.TopSpecies[species] = count
	}
	return &stats, rows.Err()
}

func (r *MediaRepo) queryMedia(ctx context.Context, query string, args ...any) ([]model.MediaItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.MediaItem{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

func scanMedia(row pgx.Row) (*model.MediaItem, error) {
	var m model.MediaItem
	var status string
	var other []byte
	err := row.Scan(
		&m.ID, &m.UserID, &m.ObjectKey, &m.FileURL, &m.ContentType, &m.SizeBytes, &m.Checksum,
		&m.Description, &m.Latitude, &m.Longitude, &m.CapturedAt, &status,
		&m.AISpeciesGuess, &m.AICommonName, &m.AISpeciesConfidence, &m.AIJustification,
		&m.AIHealthGuess, &m.AIHealthObservations, &m.AIHabitat, &m.AIWaterClarity,
		&m.AIEnvironmentNotes, &other, &m.AIModelVersion,
		&m.ConsensusSpecies, &m.ConsensusHealth, &m.ConsensusScore, &m.IsCommunityValidated,
		&m.ConsensusEvaluatedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ProcessingStatus = model.ProcessingStatus(status)
	m.AIOtherSpecies = []string{}
	if len(other) > 0 {
		if err := json.Unmarshal(other, &m.AIOtherSpecies); err != nil {
			return nil, fmt.Errorf("decode other species: %w", err)
		}
	}
	return &m, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
