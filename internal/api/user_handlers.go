package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"dysk-osobisty/internal/auth"
	"dysk-osobisty/internal/database"
)

// @Summary      Get the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {string}  string "Unauthorized"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type CategoryUsage struct {
	Bytes int64 `json:"bytes"`
	Count int64 `json:"count"`
}

type StorageUsageResponse struct {
	QuotaBytes int64                    `json:"quota_bytes"`
	UsedBytes  int64                    `json:"used_bytes"`
	Breakdown  map[string]CategoryUsage `json:"breakdown"`
}

// categorizeMime zwraca kategorię rozbicia dla typu MIME.
func categorizeMime(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return "Images"
	case strings.HasPrefix(mt, "video/"):
		return "Videos"
	case strings.Contains(mt, "spreadsheet"), strings.Contains(mt, "excel"), strings.Contains(mt, "csv"):
		return "Spreadsheets"
	case strings.HasPrefix(mt, "text/"),
		strings.Contains(mt, "pdf"),
		strings.Contains(mt, "word"),
		strings.Contains(mt, "document"),
		strings.Contains(mt, "presentation"):
		return "Documents"
	default:
		return "Other"
	}
}

// @Summary      Get storage usage
// @Description  Returns the quota, the used counter and a per-category breakdown of the user's live files. Trashed files count towards the used counter but not the breakdown.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StorageUsageResponse
// @Failure      401  {string}  string "Unauthorized"
// @Router       /me/storage [get]
func (s *Server) GetStorageUsageHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user == nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}

	usage, err := s.store.ListLiveFileMimeUsage(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to compute storage breakdown", http.StatusInternalServerError)
		return
	}

	breakdown := map[string]CategoryUsage{
		"Images":       {},
		"Videos":       {},
		"Documents":    {},
		"Spreadsheets": {},
		"Other":        {},
	}
	for _, u := range usage {
		category := categorizeMime(u.MimeType)
		entry := breakdown[category]
		entry.Bytes += u.Bytes
		entry.Count += u.Count
		breakdown[category] = entry
	}

	writeJSON(w, http.StatusOK, StorageUsageResponse{
		QuotaBytes: user.StorageQuotaBytes,
		UsedBytes:  user.StorageUsedBytes,
		Breakdown:  breakdown,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// @Summary      Change the current user's password
// @Description  Verifies the current password, stores the new hash and invalidates every active session.
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        changePasswordRequest  body  ChangePasswordRequest  true  "Current and new password"
// @Success      204  {string}  string "No Content"
// @Failure      400  {string}  string "Bad Request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Wrong current password"
// @Router       /me/password [post]
func (s *Server) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.NewPassword) < 8 {
		http.Error(w, "New password must be at least 8 characters long", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user == nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		http.Error(w, "Wrong current password", http.StatusForbidden)
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to process new password", http.StatusInternalServerError)
		return
	}

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := q.UpdateUserPassword(r.Context(), claims.UserID, newHash); err != nil {
			return err
		}
		// Zmiana hasła wylogowuje wszystkie urządzenia.
		return q.DeleteAllSessionsForUser(r.Context(), claims.UserID)
	})
	if txErr != nil {
		http.Error(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
