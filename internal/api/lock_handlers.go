package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dysk-osobisty/internal/auth"
	"dysk-osobisty/internal/database"

	"github.com/go-chi/chi/v5"
)

const minLockSecretLength = 4

type LockFolderRequest struct {
	Secret string `json:"secret"`
}

type LockStatusResponse struct {
	ID     string `json:"id"`
	Locked bool   `json:"locked"`
}

// fetchFolder pobiera węzeł i sprawdza, że to folder poza koszem.
func (s *Server) fetchFolder(r *http.Request, nodeID string, ownerID int64) (*LockStatusResponse, *string, error) {
	node, err := s.store.GetNodeByID(r.Context(), nodeID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if node == nil {
		return nil, nil, database.ErrNodeNotFound
	}
	if !node.IsFolder() {
		return nil, nil, database.ErrNotAFolder
	}
	return &LockStatusResponse{ID: node.ID, Locked: node.Locked}, node.LockSecretHash, nil
}

// @Summary      Lock a folder
// @Description  Protects a folder with a secret. The secret is stored as a bcrypt hash and is required to unlock the folder again.
// @Tags         lock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId             path      string             true  "Folder node ID"
// @Param        lockFolderRequest  body      LockFolderRequest  true  "Lock secret (minimum 4 characters)"
// @Success      200  {object}  LockStatusResponse
// @Failure      400  {string}  string "Bad Request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Failure      409  {string}  string "Folder is already locked"
// @Router       /nodes/{nodeId}/lock [post]
func (s *Server) LockFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req LockFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(strings.TrimSpace(req.Secret)) < minLockSecretLength {
		http.Error(w, "Lock secret must be at least 4 characters long", http.StatusBadRequest)
		return
	}

	status, _, err := s.fetchFolder(r, nodeID, claims.UserID)
	if err != nil {
		s.writeLockError(w, err)
		return
	}
	if status.Locked {
		s.writeLockError(w, database.ErrAlreadyLocked)
		return
	}

	hash, err := auth.HashPassword(req.Secret)
	if err != nil {
		http.Error(w, "Failed to process lock secret", http.StatusInternalServerError)
		return
	}

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := q.SetFolderLock(r.Context(), nodeID, claims.UserID, &hash, true); err != nil {
			return err
		}
		s.recordActivity(r.Context(), q, claims.UserID, &nodeID, "file_locked", nil)
		return nil
	})
	if txErr != nil {
		s.writeLockError(w, txErr)
		return
	}

	countLifecycleOp("lock_folder")
	writeJSON(w, http.StatusOK, LockStatusResponse{ID: nodeID, Locked: true})
}

// @Summary      Unlock a folder
// @Description  Removes the lock from a folder. Requires the same secret the folder was locked with.
// @Tags         lock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId             path      string             true  "Folder node ID"
// @Param        lockFolderRequest  body      LockFolderRequest  true  "Lock secret"
// @Success      200  {object}  LockStatusResponse
// @Failure      400  {string}  string "Folder is not locked"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Wrong lock secret"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/unlock [post]
func (s *Server) UnlockFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req LockFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status, secretHash, err := s.fetchFolder(r, nodeID, claims.UserID)
	if err != nil {
		s.writeLockError(w, err)
		return
	}
	if !status.Locked || secretHash == nil {
		s.writeLockError(w, database.ErrNotLocked)
		return
	}

	if !auth.CheckPasswordHash(req.Secret, *secretHash) {
		s.writeLockError(w, database.ErrWrongLockSecret)
		return
	}

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := q.SetFolderLock(r.Context(), nodeID, claims.UserID, nil, false); err != nil {
			return err
		}
		s.recordActivity(r.Context(), q, claims.UserID, &nodeID, "file_unlocked", nil)
		return nil
	})
	if txErr != nil {
		s.writeLockError(w, txErr)
		return
	}

	countLifecycleOp("unlock_folder")
	writeJSON(w, http.StatusOK, LockStatusResponse{ID: nodeID, Locked: false})
}

// @Summary      Verify a folder lock secret
// @Description  Checks the given secret against the folder's lock without changing the lock state. Used by clients to gate access to locked folders.
// @Tags         lock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId             path      string             true  "Folder node ID"
// @Param        lockFolderRequest  body      LockFolderRequest  true  "Lock secret"
// @Success      200  {object}  LockStatusResponse
// @Failure      400  {string}  string "Folder is not locked"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Wrong lock secret"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/lock/verify [post]
func (s *Server) VerifyLockHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req LockFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status, secretHash, err := s.fetchFolder(r, nodeID, claims.UserID)
	if err != nil {
		s.writeLockError(w, err)
		return
	}
	if !status.Locked || secretHash == nil {
		s.writeLockError(w, database.ErrNotLocked)
		return
	}

	if !auth.CheckPasswordHash(req.Secret, *secretHash) {
		s.writeLockError(w, database.ErrWrongLockSecret)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeLockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNodeNotFound):
		http.Error(w, "Folder not found or you do not have permission to access it", http.StatusNotFound)
	case errors.Is(err, database.ErrNotAFolder):
		http.Error(w, "Only folders can be locked", http.StatusBadRequest)
	case errors.Is(err, database.ErrAlreadyLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, database.ErrNotLocked):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrWrongLockSecret):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "Failed to update folder lock", http.StatusInternalServerError)
	}
}
