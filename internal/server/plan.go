package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
)

const planResourceType = "plans"

type planWriteAttributes struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type planReadAttributes struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func planToResource(plan plandomain.Plan) resourceObject[planReadAttributes] {
	attrs := planReadAttributes{
		ProductID: plan.ProductID.String(),
		Name:      plan.Name,
		CreatedAt: plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: plan.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if plan.Description != nil {
		attrs.Description = *plan.Description
	}
	return newResource(plan.ID.String(), planResourceType, attrs)
}

func (s *Server) CreatePlan(c *gin.Context) {
	attrs, ok := bindResource[planWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreatePlanRequest{
		ProductID:   strings.TrimSpace(attrs.ProductID),
		Name:        strings.TrimSpace(attrs.Name),
		Description: strings.TrimSpace(attrs.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, planToResource(resp))
}

func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.planSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("product_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[planReadAttributes], 0, len(resp))
	for _, item := range resp {
		resources = append(resources, planToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, nil)
}

func (s *Server) GetPlanByID(c *gin.Context) {
	resp, err := s.planSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, planToResource(resp))
}

func isPlanValidationError(err error) bool {
	switch err {
	case plandomain.ErrInvalidName,
		plandomain.ErrInvalidID,
		plandomain.ErrInvalidProduct,
		plandomain.ErrInvalidPriceID,
		plandomain.ErrInvalidCurrency,
		plandomain.ErrInvalidUnitAmount,
		plandomain.ErrInvalidInterval:
		return true
	default:
		return false
	}
}
