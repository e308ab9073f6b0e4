package database

import (
	"context"
	"errors"
	"time"

	"dysk-osobisty/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const nodeColumns = `
	id, owner_id, parent_id, name, node_type, size_bytes, mime_type,
	starred, locked, lock_secret_hash, created_at, modified_at, trashed_at, original_parent_id
`

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.SizeBytes,
		&node.MimeType,
		&node.Starred,
		&node.Locked,
		&node.LockSecretHash,
		&node.CreatedAt,
		&node.ModifiedAt,
		&node.TrashedAt,
		&node.OriginalParentID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

type CreateNodeParams struct {
	ID        string
	OwnerID   int64
	ParentID  *string
	Name      string
	NodeType  string
	SizeBytes *int64
	MimeType  *string
}

func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error) {
	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, size_bytes, mime_type, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + nodeColumns

	now := time.Now()
	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.NodeType,
		arg.SizeBytes,
		arg.MimeType,
		now,
		now,
	)

	node, err := scanNode(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	return node, nil
}

// GetNodeByID zwraca węzeł poza koszem, widoczny tylko dla właściciela.
func (q *Queries) GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE id = $1 AND owner_id = $2 AND trashed_at IS NULL
	`
	return scanNode(q.db.QueryRow(ctx, query, id, ownerID))
}

func (q *Queries) NodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (q *Queries) GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string, limit int, offset int) ([]models.Node, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `SELECT ` + nodeColumns + `
				 FROM nodes
				 WHERE owner_id = $1 AND parent_id IS NULL AND trashed_at IS NULL
				 ORDER BY node_type DESC, name
				 LIMIT $2 OFFSET $3`
		rows, err = q.db.Query(ctx, query, ownerID, limit, offset)
	} else {
		query := `SELECT ` + nodeColumns + `
				 FROM nodes
				 WHERE owner_id = $1 AND parent_id = $2 AND trashed_at IS NULL
				 ORDER BY node_type DESC, name
				 LIMIT $3 OFFSET $4`
		rows, err = q.db.Query(ctx, query, ownerID, *parentID, limit, offset)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}

// ListLiveChildren zwraca całe żywe potomstwo bezpośrednie folderu, bez
// paginacji - używane przez eksport archiwum, który musi obejść poddrzewo
// w całości.
func (q *Queries) ListLiveChildren(ctx context.Context, ownerID int64, parentID string) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND parent_id = $2 AND trashed_at IS NULL
		ORDER BY node_type DESC, name
	`
	rows, err := q.db.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

// SiblingNameExists sprawdza unikalność nazwy wśród rodzeństwa poza koszem.
// excludeID pomija węzeł, którego dotyczy rename/move.
func (q *Queries) SiblingNameExists(ctx context.Context, ownerID int64, parentID *string, name string, excludeID string) (bool, error) {
	var exists bool
	var err error

	if parentID == nil {
		query := `
			SELECT EXISTS(
				SELECT 1 FROM nodes
				WHERE owner_id = $1 AND parent_id IS NULL AND name = $2 AND id <> $3 AND trashed_at IS NULL
			)`
		err = q.db.QueryRow(ctx, query, ownerID, name, excludeID).Scan(&exists)
	} else {
		query := `
			SELECT EXISTS(
				SELECT 1 FROM nodes
				WHERE owner_id = $1 AND parent_id = $2 AND name = $3 AND id <> $4 AND trashed_at IS NULL
			)`
		err = q.db.QueryRow(ctx, query, ownerID, *parentID, name, excludeID).Scan(&exists)
	}

	return exists, err
}

// IsDescendantOf sprawdza, czy potentialDescendantId leży w poddrzewie nodeId.
// Iteracyjne zejście po CTE zamiast rekurencji w Go - głębokość drzewa nie
// ogranicza stosu.
func (q *Queries) IsDescendantOf(ctx context.Context, nodeId string, potentialDescendantId string) (bool, error) {
	if nodeId == potentialDescendantId {
		return true, nil
	}

	query := `
		WITH RECURSIVE node_children AS (
			SELECT id FROM nodes WHERE id = $1

			UNION ALL

			SELECT n.id
			FROM nodes n
			JOIN node_children nc ON n.parent_id = nc.id
		)
		SELECT EXISTS (
			SELECT 1
			FROM node_children
			WHERE id = $2
		);
	`
	var isDescendant bool
	err := q.db.QueryRow(ctx, query, nodeId, potentialDescendantId).Scan(&isDescendant)
	return isDescendant, err
}

func (q *Queries) RenameNode(ctx context.Context, id string, ownerID int64, newName string) (*models.Node, error) {
	node, err := q.GetNodeByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNodeNotFound
	}

	conflict, err := q.SiblingNameExists(ctx, ownerID, node.ParentID, newName, id)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrDuplicateNodeName
	}

	query := `
		UPDATE nodes
		SET name = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND trashed_at IS NULL
		RETURNING ` + nodeColumns

	renamed, err := scanNode(q.db.QueryRow(ctx, query, newName, time.Now(), id, ownerID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		return nil, err
	}
	if renamed == nil {
		return nil, ErrNodeNotFound
	}

	return renamed, nil
}

// MoveNode przenosi węzeł pod newParentID (nil = root). Przed zapisem
// weryfikuje własność celu, typ celu, brak cyklu i unikalność nazwy.
func (q *Queries) MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string) (*models.Node, error) {
	node, err := q.GetNodeByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNodeNotFound
	}

	if newParentID != nil {
		if *newParentID == id {
			return nil, ErrInvalidHierarchy
		}

		dest, err := q.GetNodeByID(ctx, *newParentID, ownerID)
		if err != nil {
			return nil, err
		}
		if dest == nil {
			return nil, ErrTargetNotFound
		}
		if !dest.IsFolder() {
			return nil, ErrNotAFolder
		}

		isDescendant, err := q.IsDescendantOf(ctx, id, *newParentID)
		if err != nil {
			return nil, err
		}
		if isDescendant {
			return nil, ErrInvalidHierarchy
		}
	}

	conflict, err := q.SiblingNameExists(ctx, ownerID, newParentID, node.Name, id)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrDuplicateNodeName
	}

	query := `
		UPDATE nodes
		SET parent_id = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND trashed_at IS NULL
		RETURNING ` + nodeColumns

	moved, err := scanNode(q.db.QueryRow(ctx, query, newParentID, time.Now(), id, ownerID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrTargetNotFound
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		return nil, err
	}
	if moved == nil {
		return nil, ErrNodeNotFound
	}

	return moved, nil
}

// ToggleStar przełącza gwiazdkę i zwraca nową wartość flagi.
func (q *Queries) ToggleStar(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `
		UPDATE nodes
		SET starred = NOT starred
		WHERE id = $1 AND owner_id = $2 AND trashed_at IS NULL
		RETURNING starred
	`
	var starred bool
	err := q.db.QueryRow(ctx, query, id, ownerID).Scan(&starred)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNodeNotFound
		}
		return false, err
	}
	return starred, nil
}

func (q *Queries) SetFolderLock(ctx context.Context, id string, ownerID int64, secretHash *string, locked bool) error {
	query := `
		UPDATE nodes
		SET locked = $1, lock_secret_hash = $2
		WHERE id = $3 AND owner_id = $4 AND node_type = 'folder' AND trashed_at IS NULL
	`
	res, err := q.db.Exec(ctx, query, locked, secretHash, id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (q *Queries) ListStarred(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND starred = TRUE AND trashed_at IS NULL
		ORDER BY node_type DESC, name
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func (q *Queries) ListRecent(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND node_type = 'file' AND trashed_at IS NULL
		ORDER BY modified_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}
