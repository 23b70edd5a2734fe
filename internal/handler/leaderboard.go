package handler

import (
	"net/http"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// GetLeaderboard handles GET /leaderboard?limit= (default 20, max 100).
func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	entries, err := s.Karma.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	s.respond(w, r, http.StatusOK, map[string][]domain.LeaderboardEntry{"data": entries})
}
