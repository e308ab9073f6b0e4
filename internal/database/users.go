package database

import (
	"context"
	"errors"

	"dysk-osobisty/internal/models"

	"github.com/jackc/pgx/v5"
)

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT
			id,
			username,
			password_hash,
			display_name,
			created_at,
			storage_quota_bytes,
			storage_used_bytes
		FROM users
		WHERE username = $1
	`
	var user models.User

	err := q.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.CreatedAt,
		&user.StorageQuotaBytes,
		&user.StorageUsedBytes,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT
			id, username, password_hash, display_name, created_at,
			storage_quota_bytes, storage_used_bytes
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.CreatedAt,
		&user.StorageQuotaBytes, &user.StorageUsedBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate blokuje wiersz użytkownika na czas transakcji uploadu,
// żeby dwa równoległe uploady nie przeszły razem przez kontrolę limitu.
func (q *Queries) GetUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT
			id, username, password_hash, display_name, created_at,
			storage_quota_bytes, storage_used_bytes
		FROM users
		WHERE id = $1
		FOR UPDATE
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.CreatedAt,
		&user.StorageQuotaBytes, &user.StorageUsedBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUserStorage zmienia licznik zajętości o bytesChange. Licznik nigdy
// nie schodzi poniżej zera.
func (q *Queries) UpdateUserStorage(ctx context.Context, userID int64, bytesChange int64) error {
	query := `
		UPDATE users
		SET storage_used_bytes = GREATEST(storage_used_bytes + $1, 0)
		WHERE id = $2
	`
	_, err := q.db.Exec(ctx, query, bytesChange, userID)
	return err
}

func (q *Queries) UpdateUserPassword(ctx context.Context, userID int64, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	_, err := q.db.Exec(ctx, query, newPasswordHash, userID)
	return err
}

type MimeUsage struct {
	MimeType string
	Bytes    int64
	Count    int64
}

// ListLiveFileMimeUsage agreguje zajętość żywych plików per typ MIME.
// Pliki w koszu liczą się do limitu, ale nie wchodzą do rozbicia - rozbicie
// pokazuje to, co użytkownik widzi w swoim drzewie.
func (q *Queries) ListLiveFileMimeUsage(ctx context.Context, ownerID int64) ([]MimeUsage, error) {
	query := `
		SELECT COALESCE(mime_type, ''), COALESCE(SUM(size_bytes), 0), COUNT(*)
		FROM nodes
		WHERE owner_id = $1 AND node_type = 'file' AND trashed_at IS NULL
		GROUP BY mime_type
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []MimeUsage
	for rows.Next() {
		var u MimeUsage
		if err := rows.Scan(&u.MimeType, &u.Bytes, &u.Count); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return usage, nil
}
