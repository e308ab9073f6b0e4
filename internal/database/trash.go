package database

import (
	"context"
	"errors"
	"time"

	"dysk-osobisty/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

// TrashNode przenosi węzeł do kosza wraz z całym żywym poddrzewem.
// Jeden znacznik czasu dla całej kaskady; flagi starred/locked zostają.
func (q *Queries) TrashNode(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT n.id
			FROM nodes n
			WHERE n.id = $1 AND n.owner_id = $2 AND n.trashed_at IS NULL

			UNION ALL

			SELECT n.id
			FROM nodes n
			INNER JOIN subtree s ON n.parent_id = s.id
			WHERE n.trashed_at IS NULL
		)
		UPDATE nodes
		SET
			trashed_at = $3,
			original_parent_id = parent_id
		WHERE id IN (SELECT id FROM subtree)
	`

	now := time.Now()
	res, err := q.db.Exec(ctx, query, id, ownerID, now)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) GetTrashedNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE id = $1 AND owner_id = $2 AND trashed_at IS NOT NULL
	`
	return scanNode(q.db.QueryRow(ctx, query, id, ownerID))
}

func (q *Queries) ListTrash(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND trashed_at IS NOT NULL
		ORDER BY trashed_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

// RestoreNode przywraca węzeł z kosza do original_parent_id. Jeśli pierwotny
// rodzic już nie istnieje albo sam tkwi w koszu, węzeł wraca do roota.
// Potomkowie w koszu są przywracani kaskadowo - ich parent_id nigdy nie był
// ruszany, więc wystarczy wyczyścić flagi.
func (q *Queries) RestoreNode(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	node, err := q.GetTrashedNodeByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNodeNotFound
	}

	var targetParent *string
	if node.OriginalParentID != nil {
		var parentAlive bool
		query := `
			SELECT EXISTS(
				SELECT 1 FROM nodes
				WHERE id = $1 AND owner_id = $2 AND node_type = 'folder' AND trashed_at IS NULL
			)`
		if err := q.db.QueryRow(ctx, query, *node.OriginalParentID, ownerID).Scan(&parentAlive); err != nil {
			return nil, err
		}
		if parentAlive {
			targetParent = node.OriginalParentID
		}
	}

	query := `
		UPDATE nodes
		SET
			trashed_at = NULL,
			parent_id = $1,
			original_parent_id = NULL
		WHERE id = $2 AND owner_id = $3 AND trashed_at IS NOT NULL
		RETURNING ` + nodeColumns

	restored, err := scanNode(q.db.QueryRow(ctx, query, targetParent, id, ownerID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		return nil, err
	}
	if restored == nil {
		return nil, ErrNodeNotFound
	}

	cascade := `
		WITH RECURSIVE subtree AS (
			SELECT n.id
			FROM nodes n
			WHERE n.parent_id = $1 AND n.trashed_at IS NOT NULL

			UNION ALL

			SELECT n.id
			FROM nodes n
			INNER JOIN subtree s ON n.parent_id = s.id
			WHERE n.trashed_at IS NOT NULL
		)
		UPDATE nodes
		SET trashed_at = NULL, original_parent_id = NULL
		WHERE id IN (SELECT id FROM subtree)
	`
	if _, err := q.db.Exec(ctx, cascade, restored.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		return nil, err
	}

	return restored, nil
}

// PermanentlyDeleteNode usuwa z bazy węzeł z kosza razem z całym poddrzewem
// (niezależnie od flag potomków) oraz powiązanymi wpisami aktywności.
// Zwraca identyfikatory usuniętych plików (do skasowania blobów) i sumę
// zwolnionych bajtów. Węzeł poza koszem nie pasuje do zapytania - polityka
// soft-delete-first jest egzekwowana tutaj, nie w warstwie tras.
func (q *Queries) PermanentlyDeleteNode(ctx context.Context, id string, ownerID int64) ([]string, int64, error) {
	query := `
		WITH RECURSIVE doomed AS (
			SELECT n.id
			FROM nodes n
			WHERE n.id = $1 AND n.owner_id = $2 AND n.trashed_at IS NOT NULL

			UNION ALL

			SELECT n.id
			FROM nodes n
			INNER JOIN doomed d ON n.parent_id = d.id
		),
		wiped_activity AS (
			DELETE FROM activity_log WHERE node_id IN (SELECT id FROM doomed)
		),
		purged AS (
			DELETE FROM nodes WHERE id IN (SELECT id FROM doomed)
			RETURNING id, node_type, size_bytes
		)
		SELECT id, node_type, COALESCE(size_bytes, 0) FROM purged
	`

	rows, err := q.db.Query(ctx, query, id, ownerID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deletedFileIDs []string
	var freedBytes int64
	var purged int
	for rows.Next() {
		var nodeID, nodeType string
		var size int64
		if err := rows.Scan(&nodeID, &nodeType, &size); err != nil {
			return nil, 0, err
		}
		purged++
		if nodeType == "file" {
			deletedFileIDs = append(deletedFileIDs, nodeID)
			freedBytes += size
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Brak usuniętych wierszy: węzeł nie istnieje, nie należy do właściciela
	// albo nie był w koszu.
	if purged == 0 {
		return nil, 0, ErrNodeNotFound
	}

	return deletedFileIDs, freedBytes, nil
}

// ListTrashRoots zwraca elementy kosza, których rodzic nie jest w koszu -
// punkty startowe dla EmptyTrash. Potomków obsługuje rekurencyjne zejście
// w PermanentlyDeleteNode, więc nic nie liczy się podwójnie.
func (q *Queries) ListTrashRoots(ctx context.Context, ownerID int64) ([]string, error) {
	query := `
		SELECT n.id
		FROM nodes n
		WHERE n.owner_id = $1 AND n.trashed_at IS NOT NULL
		  AND (n.parent_id IS NULL OR NOT EXISTS (
			SELECT 1 FROM nodes p WHERE p.id = n.parent_id AND p.trashed_at IS NOT NULL
		  ))
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
