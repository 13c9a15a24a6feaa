package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/advisory"
	"github.com/osanyin/herbal/internal/services"
	apperrors "github.com/osanyin/herbal/pkg/errors"
	"github.com/osanyin/herbal/pkg/response"
)

// InteractionHandler exposes the herb/drug interaction advisory.
type InteractionHandler struct {
	svc *services.InteractionService
}

// NewInteractionHandler wires the handler to the interaction service.
func NewInteractionHandler(svc *services.InteractionService) (*InteractionHandler, error) {
	if svc == nil {
		return nil, errors.New("interaction handler: service is required")
	}
	return &InteractionHandler{svc: svc}, nil
}

type checkInteractionRequest struct {
	HerbName string `json:"herb_name" binding:"required"`
	DrugName string `json:"drug_name" binding:"required"`
}

// POST /api/interactions/check
func (h *InteractionHandler) Check(c *gin.Context) {
	var req checkInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("herb_name and drug_name are required"))
		return
	}

	report, err := h.svc.Check(requestContext(c), req.HerbName, req.DrugName)
	if err != nil {
		if errors.Is(err, advisory.ErrUnavailable) {
			response.Error(c, apperrors.ErrAdvisoryUnavailable.WithInternal(err))
			return
		}
		response.Error(c, apperrors.Wrap(err, "check interaction"))
		return
	}

	response.Success(c, http.StatusOK, report)
}

// GET /api/interactions/history
func (h *InteractionHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	checks, err := h.svc.History(requestContext(c), limit)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "list interaction history"))
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, checks, &response.Meta{Total: len(checks)})
}
