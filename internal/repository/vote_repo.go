package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

type VoteRepo struct {
	db DBTX
}

func NewVoteRepo(db DBTX) *VoteRepo {
	return &VoteRepo{db: db}
}

const voteColumns = `id, media_item_id, user_id, species_verdict, corrected_species,
	health_verdict, corrected_health, comment, created_at, updated_at`

// Upsert inserts the caller's vote or updates their existing one in place.
// The unique (media_item_id, user_id) constraint arbitrates concurrent
// first-time submissions: the loser's INSERT becomes an UPDATE of the
// winner's row. Omitted payload fields keep their stored values, and a
// correction is cleared whenever the resulting verdict is not a dispute.
// created reports whether this call inserted the row.
func (r *VoteRepo) Upsert(ctx context.Context, mediaItemID, userID int64, p model.VotePayload) (*model.Vote, bool, error) {
	query := `
		INSERT INTO validation_votes
			(media_item_id, user_id, species_verdict, corrected_species,
			 health_verdict, corrected_health, comment)
		VALUES ($1, $2, COALESCE($3, 'abstain'), $4, COALESCE($5, 'abstain'), $6, $7)
		ON CONFLICT (media_item_id, user_id) DO UPDATE SET
			species_verdict = COALESCE($3, validation_votes.species_verdict),
			corrected_species = CASE
				WHEN COALESCE($3, validation_votes.species_verdict) = 'dispute'
				THEN COALESCE($4, validation_votes.corrected_species)
			END,
			health_verdict = COALESCE($5, validation_votes.health_verdict),
			corrected_health = CASE
				WHEN COALESCE($5, validation_votes.health_verdict) = 'dispute'
				THEN COALESCE($6, validation_votes.corrected_health)
			END,
			comment = COALESCE($7, validation_votes.comment),
			updated_at = NOW()
		RETURNING ` + voteColumns + `, (xmax = 0) AS inserted`

	var created bool
	v, err := scanVote(r.db.QueryRow(ctx, query,
		mediaItemID, userID,
		verdictArg(p.SpeciesVerdict), p.CorrectedSpecies,
		verdictArg(p.HealthVerdict), p.CorrectedHealth,
		p.Comment,
	), &created)
	if err != nil {
		return nil, false, err
	}

	if err := r.touch(ctx, mediaItemID); err != nil {
		return nil, false, err
	}
	return v, created, nil
}

// Get returns the vote a user cast on a media item.
func (r *VoteRepo) Get(ctx context.Context, mediaItemID, userID int64) (*model.Vote, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+voteColumns+`
		FROM validation_votes
		WHERE media_item_id = $1 AND user_id = $2`,
		mediaItemID, userID)
	v, err := scanVote(row)
	return v, notFound(err)
}

// GetByID returns a vote by its primary key.
func (r *VoteRepo) GetByID(ctx context.Context, voteID int64) (*model.Vote, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+voteColumns+`
		FROM validation_votes
		WHERE id = $1`, voteID)
	v, err := scanVote(row)
	return v, notFound(err)
}

// ListForItem returns every vote on a media item, newest first.
func (r *VoteRepo) ListForItem(ctx context.Context, mediaItemID int64) ([]model.Vote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+voteColumns+`
		FROM validation_votes
		WHERE media_item_id = $1
		ORDER BY created_at DESC, id DESC`, mediaItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, *v)
	}
	return votes, rows.Err()
}

// Delete removes a vote and returns the media item it belonged to.
func (r *VoteRepo) Delete(ctx context.Context, voteID int64) (int64, error) {
	var mediaItemID int64
	err := r.db.QueryRow(ctx, `
		DELETE FROM validation_votes WHERE id = $1
		RETURNING media_item_id`, voteID).Scan(&mediaItemID)
	if err != nil {
		return 0, notFound(err)
	}

	if err := r.touch(ctx, mediaItemID); err != nil {
		return 0, err
	}
	return mediaItemID, nil
}

// CountByUser returns how many votes a user has cast.
func (r *VoteRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM validation_votes WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// touch marks the item's vote set as changed and wakes the consensus worker.
// Both statements join the caller's transaction, so the notification is
// only delivered if the vote write commits.
func (r *VoteRepo) touch(ctx context.Context, mediaItemID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE media_items SET votes_changed_at = NOW() WHERE id = $1`, mediaItemID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `SELECT pg_notify('vote_changes', $1)`, strconv.FormatInt(mediaItemID, 10))
	return err
}

func verdictArg(v *model.Verdict) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func scanVote(row pgx.Row, extra ...any) (*model.Vote, error) {
	var v model.Vote
	var species, health string
	dest := []any{
		&v.ID, &v.MediaItemID, &v.UserID, &species, &v.CorrectedSpecies,
		&health, &v.CorrectedHealth, &v.Comment, &v.CreatedAt, &v.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	v.SpeciesVerdict = model.Verdict(species)
	v.HealthVerdict = model.Verdict(health)
	return &v, nil
}
