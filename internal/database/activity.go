package database

import (
	"context"
	"encoding/json"
	"fmt"

	"dysk-osobisty/internal/models"
)

// LogActivity dopisuje wpis audytowy dla operacji mutującej. Wywołania są
// typu fire-and-forget: błąd zapisu nie może wywrócić operacji głównej,
// więc wywołujący loguje go tylko jako ostrzeżenie.
func (q *Queries) LogActivity(ctx context.Context, userID int64, nodeID *string, action string, details interface{}) error {
	var detailsBytes []byte
	if details != nil {
		var err error
		detailsBytes, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal activity details: %w", err)
		}
	}

	query := `INSERT INTO activity_log (user_id, node_id, action, details) VALUES ($1, $2, $3, $4)`
	_, err := q.db.Exec(ctx, query, userID, nodeID, action, detailsBytes)
	return err
}

func (q *Queries) ListActivity(ctx context.Context, userID int64, limit int, offset int) ([]models.ActivityEntry, error) {
	query := `
		SELECT id, user_id, node_id, action, details, created_at
		FROM activity_log
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var entry models.ActivityEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.NodeID,
			&entry.Action,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		return []models.ActivityEntry{}, nil
	}

	return entries, nil
}

// CountActivityForNode istnieje głównie dla testów weryfikujących, że
// trwałe usunięcie czyści wpisy audytowe poddrzewa.
func (q *Queries) CountActivityForNode(ctx context.Context, nodeID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM activity_log WHERE node_id = $1`
	err := q.db.QueryRow(ctx, query, nodeID).Scan(&count)
	return count, err
}
