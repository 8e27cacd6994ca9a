package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

type healthStatus struct {
	Uptime string `json:"uptime"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(healthStatus{
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}))
}

// favoritesHandler lists a user's favorites in display order.
func (s *Server) favoritesHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("userID"))
	if userID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyUserID.Error()))
		return
	}

	items, err := s.store.ListFavorites(r.Context(), userID)
	if err != nil {
		slog.Error("Server.favoritesHandler: failed to list favorites", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list favorites"))
		return
	}
	slog.Debug("Server.favoritesHandler: favorites listed", "userID", userID, "count", len(items))
	writeJSONResponse(w, http.StatusOK, models.Success(items))
}
