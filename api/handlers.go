package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/logging"
)

type recommendationsResponse struct {
	Recommendations []core.Movie `json:"recommendations"`
}

type genresResponse struct {
	Genres []string `json:"genres"`
}

type historyResponse struct {
	UserID  string  `json:"user_id"`
	History []int64 `json:"history"`
}

// trackRequest 浏览上报请求体
type trackRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	MovieID int64  `json:"movie_id" validate:"required"`
}

type trackResponse struct {
	Success bool `json:"success"`
	Added   bool `json:"added"`
}

type readyResponse struct {
	Status     string `json:"status"`
	Items      int    `json:"items"`
	Vocabulary int    `json:"vocabulary"`
	Degraded   bool   `json:"degraded"`
}

// queryInt 读取整数查询参数，缺失或无效时返回 def
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// ListMovies GET /api/movies?page=&per_page=&search=&genre=
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := h.engine.Catalog().Find(catalog.Query{
		Search:  q.Get("search"),
		Genre:   q.Get("genre"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", catalog.DefaultPerPage),
	})
	respondJSON(w, http.StatusOK, page)
}

// GetMovie GET /api/movie/{id}
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	m, err := h.engine.Catalog().Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// Genres GET /api/genres
func (h *Handler) Genres(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, genresResponse{Genres: h.engine.Catalog().Genres()})
}

// ContentRecommendations GET /api/recommendations/content/{id}?count=
func (h *Handler) ContentRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid movie id")
		return
	}
	recs := h.engine.ContentBasedRecommend(r.Context(), id, queryInt(r, "count", 0))
	respondJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}

// UserRecommendations GET /api/recommendations/user/{userID}?count=
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	recs := h.engine.HistoryBasedRecommend(r.Context(), chi.URLParam(r, "userID"), queryInt(r, "count", 0))
	respondJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}

// PopularRecommendations GET /api/recommendations/popular?count=
func (h *Handler) PopularRecommendations(w http.ResponseWriter, r *http.Request) {
	recs := h.engine.PopularityRecommend(r.Context(), queryInt(r, "count", 0))
	respondJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}

// Track POST /api/track {"user_id": "...", "movie_id": 123}
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "user_id and movie_id required")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "user_id and movie_id required")
		return
	}
	added := h.engine.RecordView(req.UserID, req.MovieID)
	l := logging.Ctx(r.Context(), h.logger)
	if err := h.feedback.RecordView(r.Context(), req.UserID, req.MovieID, added); err != nil {
		l.Warn().Err(err).Msg("feedback record failed")
	}
	l.Debug().Str("user_id", req.UserID).Int64("movie_id", req.MovieID).Bool("added", added).Msg("view tracked")
	respondJSON(w, http.StatusOK, trackResponse{Success: true, Added: added})
}

// History GET /api/users/{userID}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	respondJSON(w, http.StatusOK, historyResponse{UserID: userID, History: h.engine.GetHistory(userID)})
}

// Live GET /api/health/live
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready GET /api/health/ready：构建完成前返回 503
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.engine.IsReady() {
		respondJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "building"})
		return
	}
	respondJSON(w, http.StatusOK, readyResponse{
		Status:     "ready",
		Items:      h.engine.Catalog().Len(),
		Vocabulary: h.engine.VocabularySize(),
		Degraded:   h.engine.BuildErr() != nil,
	})
}
