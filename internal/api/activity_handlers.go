package api

import (
	"net/http"
)

// @Summary      List recent activity
// @Description  Lists the user's activity log entries, newest first.
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 100, max 500)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   models.ActivityEntry
// @Failure      401  {string}  string "Unauthorized"
// @Router       /activity [get]
func (s *Server) ListActivityHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	entries, err := s.store.ListActivity(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list activity", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
