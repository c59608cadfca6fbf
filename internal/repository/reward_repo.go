package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

type RewardRepo struct {
	db DBTX
}

func NewRewardRepo(db DBTX) *RewardRepo {
	return &RewardRepo{db: db}
}

// Record appends an event to the ledger. Events are keyed by EventID, so a
// redelivered event is ignored and recorded is false.
func (r *RewardRepo) Record(ctx context.Context, ev model.RewardEvent) (recorded bool, err error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO reward_events (event_id, user_id, media_item_id, points, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.UserID, ev.MediaItemID, ev.Points, ev.Reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Recent returns a user's latest ledger entries.
func (r *RewardRepo) Recent(ctx context.Context, userID int64, limit int) ([]model.RewardEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, user_id, media_item_id, points, reason, created_at
		FROM reward_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RewardEvent, error) {
		var ev model.RewardEvent
		err := row.Scan(&ev.EventID, &ev.UserID, &ev.MediaItemID, &ev.Points, &ev.Reason, &ev.CreatedAt)
		return ev, err
	})
}
