package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/herbs"
	"github.com/osanyin/herbal/internal/services"
	apperrors "github.com/osanyin/herbal/pkg/errors"
	"github.com/osanyin/herbal/pkg/response"
)

// FavoriteHandler manages user favorite annotations.
type FavoriteHandler struct {
	svc  *services.FavoriteService
	repo *herbs.Repository
}

// NewFavoriteHandler wires the handler to the favorites service and the
// dataset repository used for record snapshots.
func NewFavoriteHandler(svc *services.FavoriteService, repo *herbs.Repository) (*FavoriteHandler, error) {
	if svc == nil {
		return nil, errors.New("favorite handler: service is required")
	}
	if repo == nil {
		return nil, errors.New("favorite handler: repository is required")
	}
	return &FavoriteHandler{svc: svc, repo: repo}, nil
}

type addFavoriteRequest struct {
	HerbID string `json:"herb_id" binding:"required"`
	Rating int    `json:"rating"`
}

type setRatingRequest struct {
	Rating int `json:"rating"`
}

// GET /api/favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	favorites, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "list favorites"))
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, favorites, &response.Meta{Total: len(favorites)})
}

// POST /api/favorites
func (h *FavoriteHandler) Add(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("herb_id is required"))
		return
	}

	herb, ok := h.repo.Get(req.HerbID)
	if !ok {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	favorite, err := h.svc.Add(requestContext(c), herb, req.Rating)
	if err != nil {
		response.Error(c, favoriteError(err))
		return
	}
	response.Success(c, http.StatusCreated, favorite)
}

// DELETE /api/favorites/:id
func (h *FavoriteHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, favoriteError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// GET /api/favorites/:id
func (h *FavoriteHandler) Get(c *gin.Context) {
	favorite, found, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "get favorite"))
		return
	}

	payload := gin.H{"favorite": found, "rating": 0}
	if found {
		payload["rating"] = favorite.StarRating
		payload["record"] = favorite
	}
	response.Success(c, http.StatusOK, payload)
}

// PUT /api/favorites/:id/rating
func (h *FavoriteHandler) SetRating(c *gin.Context) {
	var req setRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("rating payload is invalid"))
		return
	}

	if err := h.svc.SetRating(requestContext(c), c.Param("id"), req.Rating); err != nil {
		response.Error(c, favoriteError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rating": req.Rating})
}

func favoriteError(err error) error {
	if errors.Is(err, services.ErrInvalidRating) {
		return apperrors.NewBadRequest("rating must be between 0 and 5")
	}
	return apperrors.Wrap(err, "update favorites")
}
