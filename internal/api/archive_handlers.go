package api

import (
	"log"
	"net/http"

	"dysk-osobisty/internal/archive"

	"github.com/go-chi/chi/v5"
)

// @Summary      Download a folder as a zip archive
// @Description  Streams the folder's live subtree as a zip archive. Trashed descendants are excluded and empty folders produce no entries.
// @Tags         nodes
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Folder node ID"
// @Success      200  {file}    file
// @Failure      400  {string}  string "Not a folder"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/archive [get]
func (s *Server) DownloadArchiveHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	node, err := s.store.GetNodeByID(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve folder metadata", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "Folder not found or you do not have permission to access it", http.StatusNotFound)
		return
	}
	if !node.IsFolder() {
		http.Error(w, "Only folders can be downloaded as archives", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+".zip\"")

	// Archiwum idzie prosto w odpowiedź - nagłówki są już wysłane, więc błąd
	// w trakcie może najwyżej urwać strumień.
	if err := archive.WriteFolderZip(r.Context(), w, s.store.Queries, s.storage, claims.UserID, node); err != nil {
		log.Printf("ERROR: Failed to stream archive for node %s: %v", nodeID, err)
		return
	}

	countLifecycleOp("download_archive")
}
