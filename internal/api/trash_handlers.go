package api

import (
	"errors"
	"log"
	"net/http"

	"dysk-osobisty/internal/database"
	"dysk-osobisty/internal/models"

	"github.com/go-chi/chi/v5"
)

// @Summary      Move a node to trash
// @Description  Soft-deletes the node together with its entire live subtree. Parent links stay intact so the subtree can be restored as one piece.
// @Tags         trash
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Node ID"
// @Success      204  {string}  string "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId} [delete]
func (s *Server) TrashNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		trashed, err := q.TrashNode(r.Context(), nodeID, claims.UserID)
		if err != nil {
			return err
		}
		if !trashed {
			return database.ErrNodeNotFound
		}

		s.recordActivity(r.Context(), q, claims.UserID, &nodeID, "file_trashed", nil)
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrNodeNotFound) {
			http.Error(w, "Node not found or you do not have permission to delete it", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to move node to trash", http.StatusInternalServerError)
		return
	}

	countLifecycleOp("trash_node")
	s.publishActivity(claims.UserID, "file_trashed", map[string]string{"node_id": nodeID})
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      List trashed nodes
// @Description  Lists all of the user's trashed nodes, most recently trashed first.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Router       /trash [get]
func (s *Server) ListTrashHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	nodes, err := s.store.ListTrash(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list trash", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// @Summary      Restore a node from trash
// @Description  Restores the node and its trashed descendants. When the original parent no longer exists or sits in the trash itself, the node lands at the root.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Trashed node ID"
// @Success      200  {object}  models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Failure      409  {string}  string "Conflict - a live sibling already carries the name"
// @Router       /nodes/{nodeId}/restore [post]
func (s *Server) RestoreNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		node, err = q.RestoreNode(r.Context(), nodeID, claims.UserID)
		if err != nil {
			return err
		}

		s.recordActivity(r.Context(), q, claims.UserID, &node.ID, "file_restored", nil)
		return nil
	})

	if txErr != nil {
		switch {
		case errors.Is(txErr, database.ErrNodeNotFound):
			http.Error(w, "Node not found in trash", http.StatusNotFound)
		case errors.Is(txErr, database.ErrDuplicateNodeName):
			http.Error(w, "A node with the same name already exists in the restore destination", http.StatusConflict)
		default:
			http.Error(w, "Failed to restore node", http.StatusInternalServerError)
		}
		return
	}

	countLifecycleOp("restore_node")
	s.publishActivity(claims.UserID, "file_restored", node)
	writeJSON(w, http.StatusOK, node)
}

type PermanentDeleteResponse struct {
	FreedBytes int64 `json:"freed_bytes"`
}

// @Summary      Permanently delete a trashed node
// @Description  Irreversibly removes the node and its whole subtree from the database and the blob store, and releases the freed bytes back to the user's quota. Only trashed nodes can be deleted this way.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Trashed node ID"
// @Success      200  {object}  PermanentDeleteResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /trash/{nodeId} [delete]
func (s *Server) PermanentDeleteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var deletedFileIDs []string
	var freedBytes int64

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		deletedFileIDs, freedBytes, err = q.PermanentlyDeleteNode(r.Context(), nodeID, claims.UserID)
		if err != nil {
			return err
		}

		if freedBytes > 0 {
			if err := q.UpdateUserStorage(r.Context(), claims.UserID, -freedBytes); err != nil {
				return err
			}
		}

		// Wpisy aktywności usuniętego poddrzewa właśnie zniknęły, więc ten
		// wpis nie może wskazywać na węzeł - identyfikator ląduje w details.
		s.recordActivity(r.Context(), q, claims.UserID, nil, "file_deleted", map[string]interface{}{
			"node_id": nodeID,
			"freed":   freedBytes,
		})
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrNodeNotFound) {
			http.Error(w, "Node not found in trash", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to permanently delete node", http.StatusInternalServerError)
		return
	}

	// Bloby kasuje się po zatwierdzeniu transakcji. Osierocony blob to
	// mniejsze zło niż rekord bez pliku.
	for _, fileID := range deletedFileIDs {
		if err := s.storage.Delete(fileID); err != nil {
			log.Printf("WARN: Failed to delete blob %s for permanently deleted node: %v", fileID, err)
		}
	}

	countLifecycleOp("permanent_delete")
	writeJSON(w, http.StatusOK, PermanentDeleteResponse{FreedBytes: freedBytes})
}

type PurgeTrashResponse struct {
	PurgedRoots int   `json:"purged_roots"`
	FreedBytes  int64 `json:"freed_bytes"`
}

// @Summary      Empty the trash
// @Description  Permanently deletes every trashed node belonging to the user. Each trash root is deleted in its own transaction so a failure mid-way leaves the rest of the trash intact.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PurgeTrashResponse
// @Failure      401  {string}  string "Unauthorized"
// @Router       /trash/purge [delete]
func (s *Server) PurgeTrashHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	roots, err := s.store.ListTrashRoots(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to list trash contents", http.StatusInternalServerError)
		return
	}

	var purgedRoots int
	var totalFreed int64
	var allFileIDs []string

	for _, rootID := range roots {
		var deletedFileIDs []string
		var freedBytes int64

		txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
			var err error
			deletedFileIDs, freedBytes, err = q.PermanentlyDeleteNode(r.Context(), rootID, claims.UserID)
			if err != nil {
				return err
			}
			if freedBytes > 0 {
				return q.UpdateUserStorage(r.Context(), claims.UserID, -freedBytes)
			}
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, database.ErrNodeNotFound) {
				// Korzeń mógł zniknąć we wcześniejszej iteracji.
				continue
			}
			log.Printf("ERROR: Failed to purge trash root %s for user %d: %v", rootID, claims.UserID, txErr)
			continue
		}

		purgedRoots++
		totalFreed += freedBytes
		allFileIDs = append(allFileIDs, deletedFileIDs...)
	}

	for _, fileID := range allFileIDs {
		if err := s.storage.Delete(fileID); err != nil {
			log.Printf("WARN: Failed to delete blob %s while emptying trash: %v", fileID, err)
		}
	}

	if purgedRoots > 0 {
		txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
			s.recordActivity(r.Context(), q, claims.UserID, nil, "trash_emptied", map[string]interface{}{
				"purged_roots": purgedRoots,
				"freed":        totalFreed,
			})
			return nil
		})
		if txErr != nil {
			log.Printf("WARN: Failed to log trash_emptied for user %d: %v", claims.UserID, txErr)
		}
	}

	countLifecycleOp("purge_trash")
	writeJSON(w, http.StatusOK, PurgeTrashResponse{PurgedRoots: purgedRoots, FreedBytes: totalFreed})
}
