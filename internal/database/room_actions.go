// internal/database/room_actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/tombola/internal/models"
)

// ActionStore persists historian records.
type ActionStore struct {
	db txBeginner
}

func NewActionStore(db txBeginner) *ActionStore {
	return &ActionStore{db: db}
}

// SaveBatch inserts every record in one transaction. Records already stored
// (same room and index) are skipped, so a replayed batch is harmless.
func (s *ActionStore) SaveBatch(ctx context.Context, records []models.RoomAction) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertRoomActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoomActionTx %s#%d: %w", rec.RoomCode, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// MarkAbandoned closes rooms that are still open, for when the server stopped
// without recording room_closed.
func (s *ActionStore) MarkAbandoned(ctx context.Context, roomID string) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE rooms_history
			SET status = 'abandoned', closed_at = NOW()
			WHERE id = $1 AND status = 'open'
		`, roomID)
		return err
	})
}

// insertRoomActionTx upserts the room row, inserts the action, and closes the
// room row when the action is room_closed.
func insertRoomActionTx(ctx context.Context, tx pgx.Tx, rec models.RoomAction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO rooms_history (id, code, status, opened_at)
		VALUES ($1, $2, 'open', $3)
		ON CONFLICT (id) DO NOTHING
	`, rec.RoomID, rec.RoomCode, time.UnixMilli(rec.Timestamp))
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO room_actions (
			room_id, action_index, actor_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, action_index) DO NOTHING
	`, rec.RoomID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	if err != nil {
		return err
	}

	if rec.ActionType == "room_closed" {
		_, err = tx.Exec(ctx, `
			UPDATE rooms_history
			SET status = 'closed', closed_at = $2
			WHERE id = $1 AND status = 'open'
		`, rec.RoomID, time.UnixMilli(rec.Timestamp))
	}
	return err
}
