package httpserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/leaderboard"
	"github.com/Clark-Hu/cinerank/internal/logging"
	"github.com/Clark-Hu/cinerank/internal/metadata"
	"github.com/Clark-Hu/cinerank/internal/metrics"
	"github.com/Clark-Hu/cinerank/internal/ranking"
	"github.com/Clark-Hu/cinerank/internal/repository"
	"github.com/Clark-Hu/cinerank/internal/validation"
)

const maxLeaderboardLimit = 500

type itemCreateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"required"`
}

type ratingRequest struct {
	Rating int `json:"rating" validate:"min=1,max=5"`
}

type itemResponse struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Category         domain.Category          `json:"category"`
	Genre            string                   `json:"genre"`
	Year             int                      `json:"year"`
	IMDbRating       float64                  `json:"imdbRating"`
	RottenTomatoes   *string                  `json:"rottenTomatoes,omitempty"`
	TotalSeasons     *int                     `json:"totalSeasons,omitempty"`
	Description      string                   `json:"description"`
	PosterURL        *string                  `json:"posterUrl,omitempty"`
	RunPeriod        string                   `json:"runPeriod"`
	StreamingOptions []domain.StreamingOption `json:"streamingOptions"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

type leaderboardEntryResponse struct {
	Rank          int          `json:"rank"`
	Score         int          `json:"score"`
	Unranked      bool         `json:"unranked"`
	Item          itemResponse `json:"item"`
	Likes         int          `json:"likes"`
	Dislikes      int          `json:"dislikes"`
	RatingCount   int          `json:"ratingCount"`
	AverageRating float64      `json:"averageRating"`
}

type leaderboardResponse struct {
	Items []leaderboardEntryResponse `json:"items"`
}

type breakdownResponse struct {
	LikeScore   float64 `json:"likeScore"`
	RatingScore float64 `json:"ratingScore"`
	Confidence  float64 `json:"confidence"`
	Weighted    float64 `json:"weighted"`
}

type itemDetailResponse struct {
	Item          itemResponse      `json:"item"`
	Score         int               `json:"score"`
	Unranked      bool              `json:"unranked"`
	Likes         int               `json:"likes"`
	Dislikes      int               `json:"dislikes"`
	RatingCount   int               `json:"ratingCount"`
	AverageRating float64           `json:"averageRating"`
	Breakdown     breakdownResponse `json:"breakdown"`
	YourVote      *domain.Vote      `json:"yourVote,omitempty"`
	YourRating    *int              `json:"yourRating,omitempty"`
}

type voteResponse struct {
	ItemID   string      `json:"itemId"`
	Vote     domain.Vote `json:"vote"`
	Likes    int         `json:"likes"`
	Dislikes int         `json:"dislikes"`
	Score    int         `json:"score"`
}

type ratingResponse struct {
	ItemID        string  `json:"itemId"`
	VoterID       string  `json:"voterId"`
	Rating        int     `json:"rating"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
	Score         int     `json:"score"`
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := buildLeaderboardFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	entries, err := s.board.Leaderboard(r.Context(), filter)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("compute leaderboard")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute leaderboard")
		return
	}

	engine := s.board.Engine()
	items := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toLeaderboardEntry(e, engine.Breakdown(e.Item.Interactions)))
	}
	s.respondJSON(w, http.StatusOK, leaderboardResponse{Items: items})
}

func buildLeaderboardFilter(query url.Values) (leaderboard.Filter, error) {
	var filter leaderboard.Filter

	if val := strings.TrimSpace(query.Get("category")); val != "" {
		category, err := domain.ParseCategory(val)
		if err != nil {
			return filter, fmt.Errorf("invalid category value")
		}
		filter.Category = &category
	}
	filter.Genre = strings.TrimSpace(query.Get("genre"))
	filter.Query = strings.TrimSpace(query.Get("q"))
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit value")
		}
		if limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondUnauthorized(w)
		return
	}

	var req itemCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		s.respondValidation(w, &validation.Error{Fields: []validation.FieldError{{
			Field:   "category",
			Tag:     "oneof",
			Message: "category must be one of: Movie, Series, Anime",
		}}})
		return
	}

	details := s.lookupDetails(r.Context(), req.Name, category)
	item, err := s.repo.Items.Create(r.Context(), repository.ItemCreateParams{
		Name:        req.Name,
		Category:    category,
		ItemDetails: toItemDetails(details),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", req.Name).Msg("create item")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create item")
		return
	}
	s.board.Invalidate(r.Context())

	item.Interactions = domain.NewInteractions()
	w.Header().Set("Location", "/items/"+url.PathEscape(item.ID))
	s.respondJSON(w, http.StatusCreated, s.toItemDetail(item, ""))
}

// lookupDetails asks the provider for details and falls back to defaults on
// any failure so the item is always created.
func (s *Server) lookupDetails(ctx context.Context, name string, category domain.Category) metadata.Details {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.MetadataTimeoutSecs)*time.Second)
	defer cancel()

	details, err := s.metadata.Lookup(ctx, name, category)
	if err != nil {
		if !errors.Is(err, metadata.ErrNotFound) {
			s.logger.Warn().Err(err).Str("name", name).Msg("metadata lookup failed, using defaults")
		}
		return metadata.Fallback(name, category, s.now())
	}
	return *details
}

func (s *Server) handleRefreshMetadata(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondUnauthorized(w)
		return
	}
	id := chi.URLParam(r, "id")
	item, err := s.repo.Items.GetByID(r.Context(), id)
	if err != nil {
		s.respondRepoError(w, r, err, "load item for refresh")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.MetadataTimeoutSecs)*time.Second)
	defer cancel()
	details, err := s.metadata.Lookup(ctx, item.Name, item.Category)
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "No metadata found for item")
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("item_id", id).Msg("metadata refresh failed")
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Metadata provider unavailable")
		return
	}

	if _, err := s.repo.Items.UpdateDetails(r.Context(), id, toItemDetails(*details)); err != nil {
		s.respondRepoError(w, r, err, "update item details")
		return
	}
	s.board.Invalidate(r.Context())
	s.respondItemDetail(w, r, id, http.StatusOK)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	s.respondItemDetail(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondUnauthorized(w)
		return
	}
	if err := s.repo.Items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondRepoError(w, r, err, "delete item")
		return
	}
	s.board.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.handleToggle(w, r, domain.VoteLike)
}

func (s *Server) handleDislike(w http.ResponseWriter, r *http.Request) {
	s.handleToggle(w, r, domain.VoteDislike)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, pressed domain.Vote) {
	voter, ok := voterID(r)
	if !ok {
		s.respondUnauthorized(w)
		return
	}
	id := chi.URLParam(r, "id")

	vote, err := s.repo.Votes.Toggle(r.Context(), id, voter, pressed)
	if err != nil {
		metrics.VoteActions.WithLabelValues(string(pressed), "error").Inc()
		s.respondRepoError(w, r, err, "toggle vote")
		return
	}
	metrics.VoteActions.WithLabelValues(string(pressed), string(vote)).Inc()
	s.board.Invalidate(r.Context())

	item, err := s.repo.Items.GetWithInteractions(r.Context(), id)
	if err != nil {
		s.respondRepoError(w, r, err, "reload item after vote")
		return
	}
	s.respondJSON(w, http.StatusOK, voteResponse{
		ItemID:   item.ID,
		Vote:     vote,
		Likes:    item.Interactions.Likes(),
		Dislikes: item.Interactions.Dislikes(),
		Score:    s.board.Engine().Score(item.Interactions),
	})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	voter, ok := voterID(r)
	if !ok {
		s.respondUnauthorized(w)
		return
	}
	id := chi.URLParam(r, "id")

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}

	inserted, err := s.repo.Ratings.Upsert(r.Context(), id, voter, req.Rating)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRating) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be between 1 and 5")
			return
		}
		metrics.VoteActions.WithLabelValues("rating", "error").Inc()
		s.respondRepoError(w, r, err, "upsert rating")
		return
	}
	result := "updated"
	status := http.StatusOK
	if inserted {
		result = "created"
		status = http.StatusCreated
	}
	metrics.VoteActions.WithLabelValues("rating", result).Inc()
	s.board.Invalidate(r.Context())

	item, err := s.repo.Items.GetWithInteractions(r.Context(), id)
	if err != nil {
		s.respondRepoError(w, r, err, "reload item after rating")
		return
	}
	s.respondJSON(w, status, ratingResponse{
		ItemID:        item.ID,
		VoterID:       voter,
		Rating:        req.Rating,
		AverageRating: roundToOneDecimal(item.Interactions.AverageRating()),
		RatingCount:   item.Interactions.RatingCount(),
		Score:         s.board.Engine().Score(item.Interactions),
	})
}

func (s *Server) respondItemDetail(w http.ResponseWriter, r *http.Request, id string, status int) {
	item, err := s.repo.Items.GetWithInteractions(r.Context(), id)
	if err != nil {
		s.respondRepoError(w, r, err, "load item")
		return
	}
	voter, _ := voterID(r)
	s.respondJSON(w, status, s.toItemDetail(item, voter))
}

func (s *Server) respondRepoError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondNotFound(w)
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("repository error")
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func (s *Server) toItemDetail(item domain.MediaItem, voter string) itemDetailResponse {
	c := s.board.Engine().Breakdown(item.Interactions)
	resp := itemDetailResponse{
		Item:          toItemResponse(item),
		Score:         c.Score,
		Unranked:      isUnranked(c),
		Likes:         c.Likes,
		Dislikes:      c.Dislikes,
		RatingCount:   c.RatingCount,
		AverageRating: roundToOneDecimal(item.Interactions.AverageRating()),
		Breakdown: breakdownResponse{
			LikeScore:   roundToOneDecimal(c.LikeScore),
			RatingScore: roundToOneDecimal(c.RatingScore),
			Confidence:  math.Round(c.Confidence*1000) / 1000,
			Weighted:    roundToOneDecimal(c.Weighted),
		},
	}
	if voter != "" {
		vote := item.Interactions.VoteOf(voter)
		resp.YourVote = &vote
		if stars, ok := item.Interactions.StarRatings[voter]; ok {
			resp.YourRating = &stars
		}
	}
	return resp
}

func toLeaderboardEntry(e ranking.Entry, c ranking.Components) leaderboardEntryResponse {
	return leaderboardEntryResponse{
		Rank:          e.Rank,
		Score:         e.Score,
		Unranked:      isUnranked(c),
		Item:          toItemResponse(e.Item),
		Likes:         c.Likes,
		Dislikes:      c.Dislikes,
		RatingCount:   c.RatingCount,
		AverageRating: roundToOneDecimal(e.Item.Interactions.AverageRating()),
	}
}

func isUnranked(c ranking.Components) bool {
	return c.Score == 0 && c.TotalVotes == 0
}

func toItemResponse(item domain.MediaItem) itemResponse {
	streaming := item.StreamingOptions
	if streaming == nil {
		streaming = []domain.StreamingOption{}
	}
	return itemResponse{
		ID:               item.ID,
		Name:             item.Name,
		Category:         item.Category,
		Genre:            item.Genre,
		Year:             item.Year,
		IMDbRating:       item.IMDbRating,
		RottenTomatoes:   item.RottenTomatoes,
		TotalSeasons:     item.TotalSeasons,
		Description:      item.Description,
		PosterURL:        item.PosterURL,
		RunPeriod:        item.RunPeriod,
		StreamingOptions: streaming,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func toItemDetails(d metadata.Details) repository.ItemDetails {
	return repository.ItemDetails{
		Genre:            d.Genre,
		Year:             d.Year,
		IMDbRating:       d.IMDbRating,
		RottenTomatoes:   d.RottenTomatoes,
		TotalSeasons:     d.TotalSeasons,
		Description:      d.Description,
		PosterURL:        d.PosterURL,
		RunPeriod:        d.RunPeriod,
		StreamingOptions: d.StreamingOptions,
	}
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10.0
}
