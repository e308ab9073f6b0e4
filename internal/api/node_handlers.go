package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"dysk-osobisty/internal/database"
	"dysk-osobisty/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
)

const nodeIDLength = 21

func (s *Server) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	generateID, err := nanoid.Standard(nodeIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		id := generateID()
		exists, err := s.store.NodeExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for node existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// resolveParentFolder weryfikuje, że wskazany rodzic istnieje, jest folderem
// poza koszem i należy do właściciela. nil = root, zawsze poprawny.
func resolveParentFolder(ctx context.Context, q *database.Queries, ownerID int64, parentID *string) error {
	if parentID == nil {
		return nil
	}
	dest, err := q.GetNodeByID(ctx, *parentID, ownerID)
	if err != nil {
		return err
	}
	if dest == nil {
		return database.ErrTargetNotFound
	}
	if !dest.IsFolder() {
		return database.ErrNotAFolder
	}
	return nil
}

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// @Summary      Create a folder
// @Description  Creates a new folder under the given parent (or at the root). Fails if a non-trashed sibling already carries the same name.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFolderRequest  body      CreateFolderRequest  true  "Folder name and optional parent"
// @Success      201  {object}  models.Node
// @Failure      400  {string}  string "Bad Request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      409  {string}  string "Conflict - duplicate name"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /nodes/folder [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "Folder name cannot be empty", http.StatusBadRequest)
		return
	}

	if req.ParentID != nil && len(*req.ParentID) != nodeIDLength {
		http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
		return
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := resolveParentFolder(r.Context(), q, claims.UserID, req.ParentID); err != nil {
			return err
		}

		conflict, err := q.SiblingNameExists(r.Context(), claims.UserID, req.ParentID, name, "")
		if err != nil {
			return err
		}
		if conflict {
			return database.ErrDuplicateNodeName
		}

		node, err = q.CreateNode(r.Context(), database.CreateNodeParams{
			ID:       nodeID,
			OwnerID:  claims.UserID,
			ParentID: req.ParentID,
			Name:     name,
			NodeType: "folder",
		})
		if err != nil {
			return err
		}

		s.recordActivity(r.Context(), q, claims.UserID, &node.ID, "folder_created", nil)
		return nil
	})

	if txErr != nil {
		switch {
		case errors.Is(txErr, database.ErrDuplicateNodeName):
			http.Error(w, txErr.Error(), http.StatusConflict)
		case errors.Is(txErr, database.ErrTargetNotFound), errors.Is(txErr, database.ErrNotAFolder):
			http.Error(w, "Parent folder does not exist", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create folder", http.StatusInternalServerError)
		}
		return
	}

	countLifecycleOp("create_folder")
	s.publishActivity(claims.UserID, "folder_created", node)
	writeJSON(w, http.StatusCreated, node)
}

// @Summary      List nodes in a folder
// @Description  Lists the non-trashed children of the given folder, or of the root when parent_id is omitted. Folders sort before files.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        parent_id  query     string  false  "Parent folder ID (omit for root)"
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /nodes [get]
func (s *Server) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	parentIDStr := r.URL.Query().Get("parent_id")

	var parentID *string
	if parentIDStr != "" {
		parentID = &parentIDStr
	}

	nodes, err := s.store.GetNodesByParentID(r.Context(), claims.UserID, parentID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list nodes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// @Summary      Upload a file
// @Description  Stores the file content, re-derives its size from the stored blob and creates the file node. The user's storage counter is updated in the same transaction.
// @Tags         nodes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File content"
// @Param        parent_id  formData  string  false  "Parent folder ID"
// @Success      201  {object}  models.Node
// @Failure      400  {string}  string "Bad Request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      413  {string}  string "Payload Too Large"
// @Failure      415  {string}  string "Unsupported file type"
// @Failure      507  {string}  string "Storage quota exceeded"
// @Router       /nodes/file [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	maxUpload := s.config.Storage.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if strings.TrimSpace(handler.Filename) == "" {
		http.Error(w, "File name cannot be empty", http.StatusBadRequest)
		return
	}

	if handler.Size > maxUpload {
		http.Error(w, "File exceeds the maximum allowed size", http.StatusRequestEntityTooLarge)
		return
	}

	if !s.extensionAllowed(handler.Filename) {
		http.Error(w, "File type is not allowed", http.StatusUnsupportedMediaType)
		return
	}

	parentIDStr := r.FormValue("parent_id")
	var parentID *string
	if parentIDStr != "" {
		if len(parentIDStr) != nodeIDLength {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		parentID = &parentIDStr
	}

	// Wstępna kontrola limitu na rozmiarze deklarowanym - zanim cokolwiek
	// trafi na dysk. Ostateczna kontrola po zapisie, na rozmiarze faktycznym.
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user == nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}
	if user.StorageUsedBytes+handler.Size > user.StorageQuotaBytes {
		http.Error(w, "Storage quota exceeded", http.StatusInsufficientStorage)
		return
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.storage.Save(nodeID, file); err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	// Rozmiar liczy się z zapisanego blobu, nie z deklaracji klienta.
	sizeBytes, err := s.storage.Size(nodeID)
	if err != nil {
		s.cleanupBlob(nodeID)
		http.Error(w, "Failed to verify stored file", http.StatusInternalServerError)
		return
	}

	// Multipart zwykle deklaruje octet-stream - wtedy lepszą podpowiedzią
	// jest rozszerzenie pliku.
	mimeType := handler.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(handler.Filename)); byExt != "" {
			mimeType = byExt
		}
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := resolveParentFolder(r.Context(), q, claims.UserID, parentID); err != nil {
			return err
		}

		lockedUser, err := q.GetUserForUpdate(r.Context(), claims.UserID)
		if err != nil {
			return err
		}
		if lockedUser == nil {
			return database.ErrNodeNotFound
		}
		if lockedUser.StorageUsedBytes+sizeBytes > lockedUser.StorageQuotaBytes {
			return database.ErrQuotaExceeded
		}

		conflict, err := q.SiblingNameExists(r.Context(), claims.UserID, parentID, handler.Filename, "")
		if err != nil {
			return err
		}
		if conflict {
			return database.ErrDuplicateNodeName
		}

		node, err = q.CreateNode(r.Context(), database.CreateNodeParams{
			ID:        nodeID,
			OwnerID:   claims.UserID,
			ParentID:  parentID,
			Name:      handler.Filename,
			NodeType:  "file",
			SizeBytes: &sizeBytes,
			MimeType:  &mimeType,
		})
		if err != nil {
			return err
		}

		if err := q.UpdateUserStorage(r.Context(), claims.UserID, sizeBytes); err != nil {
			return err
		}

		s.recordActivity(r.Context(), q, claims.UserID, &node.ID, "file_uploaded", map[string]interface{}{"size": sizeBytes})
		return nil
	})

	if txErr != nil {
		s.cleanupBlob(nodeID)
		switch {
		case errors.Is(txErr, database.ErrQuotaExceeded):
			http.Error(w, "Storage quota exceeded", http.StatusInsufficientStorage)
		case errors.Is(txErr, database.ErrDuplicateNodeName):
			http.Error(w, txErr.Error(), http.StatusConflict)
		case errors.Is(txErr, database.ErrTargetNotFound), errors.Is(txErr, database.ErrNotAFolder):
			http.Error(w, "Parent folder does not exist", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create file record", http.StatusInternalServerError)
		}
		return
	}

	countLifecycleOp("upload_file")
	s.publishActivity(claims.UserID, "file_uploaded", node)
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) extensionAllowed(filename string) bool {
	allowed := s.config.Storage.AllowedExtensions
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func (s *Server) cleanupBlob(nodeID string) {
	if err := s.storage.Delete(nodeID); err != nil {
		log.Printf("WARN: Failed to clean up blob %s after aborted upload: %v", nodeID, err)
	}
}

// @Summary      Download a file
// @Description  Streams the raw content of a file node.
// @Tags         nodes
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "File node ID"
// @Success      200  {file}    file
// @Failure      400  {string}  string "Cannot download a folder"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodeID := chi.URLParam(r, "nodeId")
	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve file metadata", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "File not found or you do not have permission to access it", http.StatusNotFound)
		return
	}
	if node.IsFolder() {
		http.Error(w, "Cannot download a folder", http.StatusBadRequest)
		return
	}

	fileStream, err := s.storage.Get(node.ID)
	if err != nil {
		http.Error(w, "File not found on storage", http.StatusInternalServerError)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+"\"")
	if node.MimeType != nil && *node.MimeType != "" {
		w.Header().Set("Content-Type", *node.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	io.Copy(w, fileStream)
}

type UpdateNodeRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parent_id"`
	ToRoot   bool    `json:"to_root"`
}

// @Summary      Rename or move a node
// @Description  Renames the node and/or moves it to a new parent. Set to_root to move the node to the top level. Moving a folder into itself or its own descendant is rejected.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId             path      string             true  "Node ID"
// @Param        updateNodeRequest  body      UpdateNodeRequest  true  "New name and/or destination"
// @Success      200  {object}  models.Node
// @Failure      400  {string}  string "Bad Request or invalid hierarchy"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Failure      409  {string}  string "Conflict - duplicate name"
// @Router       /nodes/{nodeId} [patch]
func (s *Server) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == nil && req.ParentID == nil && !req.ToRoot {
		http.Error(w, "No update operation specified (provide 'name', 'parent_id' or 'to_root')", http.StatusBadRequest)
		return
	}

	if req.ParentID != nil && len(*req.ParentID) != nodeIDLength {
		http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
		return
	}

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error

		if req.Name != nil {
			newName := strings.TrimSpace(*req.Name)
			if newName == "" {
				return errEmptyName
			}

			node, err = q.RenameNode(r.Context(), nodeID, claims.UserID, newName)
			if err != nil {
				return err
			}
			s.recordActivity(r.Context(), q, claims.UserID, &node.ID, "file_renamed", map[string]interface{}{"new_name": newName})
		}

		if req.ParentID != nil || req.ToRoot {
			node, err = q.MoveNode(r.Context(), nodeID, claims.UserID, req.ParentID)
			if err != nil {
				return err
			}
			s.recordActivity(r.Context(), q, claims.UserID, &node.ID, "file_moved", nil)
		}

		return nil
	})

	if txErr != nil {
		switch {
		case errors.Is(txErr, errEmptyName):
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
		case errors.Is(txErr, database.ErrNodeNotFound):
			http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
		case errors.Is(txErr, database.ErrDuplicateNodeName):
			http.Error(w, "A node with the same name already exists in the target folder", http.StatusConflict)
		case errors.Is(txErr, database.ErrInvalidHierarchy):
			http.Error(w, "Cannot move a node into itself or its own descendant", http.StatusBadRequest)
		case errors.Is(txErr, database.ErrTargetNotFound), errors.Is(txErr, database.ErrNotAFolder):
			http.Error(w, "Target folder does not exist", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to update node", http.StatusInternalServerError)
		}
		return
	}

	countLifecycleOp("update_node")
	s.publishActivity(claims.UserID, "node_updated", node)
	writeJSON(w, http.StatusOK, node)
}

var errEmptyName = errors.New("name cannot be empty")

type ToggleStarResponse struct {
	ID      string `json:"id"`
	Starred bool   `json:"starred"`
}

// @Summary      Toggle star on a node
// @Description  Flips the starred flag. Each call toggles; two calls return the node to its original state.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Node ID"
// @Success      200  {object}  ToggleStarResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/star [post]
func (s *Server) ToggleStarHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var starred bool
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		starred, err = q.ToggleStar(r.Context(), nodeID, claims.UserID)
		if err != nil {
			return err
		}

		action := "file_unstarred"
		if starred {
			action = "file_starred"
		}
		s.recordActivity(r.Context(), q, claims.UserID, &nodeID, action, nil)
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrNodeNotFound) {
			http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to toggle star", http.StatusInternalServerError)
		return
	}

	countLifecycleOp("toggle_star")
	writeJSON(w, http.StatusOK, ToggleStarResponse{ID: nodeID, Starred: starred})
}

// @Summary      List starred nodes
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Router       /starred [get]
func (s *Server) ListStarredHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	nodes, err := s.store.ListStarred(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list starred nodes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// @Summary      List recently modified files
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Router       /recent [get]
func (s *Server) ListRecentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	nodes, err := s.store.ListRecent(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list recent files", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}
