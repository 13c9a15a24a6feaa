package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/herbs"
	apperrors "github.com/osanyin/herbal/pkg/errors"
	"github.com/osanyin/herbal/pkg/response"
)

// HerbHandler exposes the remote herbal dataset over HTTP.
type HerbHandler struct {
	repo *herbs.Repository
}

// NewHerbHandler wires the handler to a dataset repository.
func NewHerbHandler(repo *herbs.Repository) (*HerbHandler, error) {
	if repo == nil {
		return nil, errors.New("herb handler: repository is required")
	}
	return &HerbHandler{repo: repo}, nil
}

// GET /api/herbs
func (h *HerbHandler) List(c *gin.Context) {
	records := h.repo.Filter(herbs.FilterOptions{
		Category:  c.Query("category"),
		Continent: c.Query("continent"),
		Search:    c.Query("search"),
	})

	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{Total: len(records)})
}

// GET /api/herbs/:id
func (h *HerbHandler) Get(c *gin.Context) {
	herb, ok := h.repo.Get(c.Param("id"))
	if !ok {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, herb)
}

// GET /api/herbs/categories
func (h *HerbHandler) Categories(c *gin.Context) {
	categories := h.repo.Categories()
	response.SuccessWithMeta(c, http.StatusOK, categories, &response.Meta{Total: len(categories)})
}

// GET /api/herbs/status
func (h *HerbHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"loading": h.repo.Loading(),
		"error":   h.repo.ErrMessage(),
		"records": len(h.repo.Records()),
	})
}

// POST /api/herbs/fetch
//
// Loads the dataset, serving from cache while it is fresh.
func (h *HerbHandler) Fetch(c *gin.Context) {
	if err := h.repo.Fetch(requestContext(c)); err != nil {
		response.Error(c, fetchError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"records": len(h.repo.Records())})
}

// POST /api/herbs/refresh
//
// Discards the cache and the source ladder position, then fetches anew.
func (h *HerbHandler) Refresh(c *gin.Context) {
	if err := h.repo.Refresh(requestContext(c)); err != nil {
		response.Error(c, fetchError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"records": len(h.repo.Records())})
}

func fetchError(err error) error {
	var transport *herbs.TransportError
	var rejected *herbs.ContentRejectedError
	var decode *herbs.DecodeError

	switch {
	case errors.As(err, &transport), errors.As(err, &rejected), errors.As(err, &decode):
		return apperrors.ErrSourceUnavailable.WithInternal(err)
	default:
		return apperrors.Wrap(err, "fetch dataset")
	}
}
