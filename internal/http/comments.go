package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/repository"
	"github.com/Clark-Hu/cinerank/internal/validation"
)

type commentCreateRequest struct {
	Text        string  `json:"text" validate:"required,max=1000"`
	AuthorName  string  `json:"authorName" validate:"required,max=100"`
	AuthorPhoto *string `json:"authorPhoto" validate:"omitempty,url"`
}

type commentResponse struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"itemId"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorPhoto *string   `json:"authorPhoto,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
}

type commentListResponse struct {
	Items []commentResponse `json:"items"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.repo.Items.GetByID(r.Context(), id); err != nil {
		s.respondRepoError(w, r, err, "load item for comments")
		return
	}
	comments, err := s.repo.Comments.ListByItem(r.Context(), id)
	if err != nil {
		s.respondRepoError(w, r, err, "list comments")
		return
	}
	items := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		items = append(items, toCommentResponse(c))
	}
	s.respondJSON(w, http.StatusOK, commentListResponse{Items: items})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	voter, ok := voterID(r)
	if !ok {
		s.respondUnauthorized(w)
		return
	}

	var req commentCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	req.AuthorName = strings.TrimSpace(req.AuthorName)
	req.AuthorPhoto = normalizeStringPtr(req.AuthorPhoto)
	if err := validation.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}

	comment, err := s.repo.Comments.Add(r.Context(), repository.CommentCreateParams{
		ItemID:      chi.URLParam(r, "id"),
		AuthorID:    voter,
		AuthorName:  req.AuthorName,
		AuthorPhoto: req.AuthorPhoto,
		Text:        req.Text,
	})
	if err != nil {
		s.respondRepoError(w, r, err, "add comment")
		return
	}
	s.respondJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		ItemID:      c.ItemID,
		AuthorID:    c.AuthorID,
		AuthorName:  c.AuthorName,
		AuthorPhoto: c.AuthorPhoto,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
	}
}
