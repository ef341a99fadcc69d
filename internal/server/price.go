package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
)

const priceResourceType = "prices"

type priceWriteAttributes struct {
	PlanID            string `json:"plan_id"`
	Currency          string `json:"currency"`
	UnitAmount        int64  `json:"unit_amount"`
	RecurringInterval string `json:"recurring_interval"`
}

type priceReadAttributes struct {
	PlanID            string `json:"plan_id"`
	Currency          string `json:"currency"`
	UnitAmount        int64  `json:"unit_amount"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func priceToResource(price plandomain.Price) resourceObject[priceReadAttributes] {
	return newResource(price.ID.String(), priceResourceType, priceReadAttributes{
		PlanID:            price.PlanID.String(),
		Currency:          price.Currency,
		UnitAmount:        price.UnitAmount,
		RecurringInterval: price.RecurringInterval,
		CreatedAt:         price.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         price.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) CreatePrice(c *gin.Context) {
	attrs, ok := bindResource[priceWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.planSvc.CreatePrice(c.Request.Context(), plandomain.CreatePriceRequest{
		PlanID:            strings.TrimSpace(attrs.PlanID),
		Currency:          strings.TrimSpace(attrs.Currency),
		UnitAmount:        attrs.UnitAmount,
		RecurringInterval: strings.TrimSpace(attrs.RecurringInterval),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, priceToResource(resp))
}

func (s *Server) ListPrices(c *gin.Context) {
	resp, err := s.planSvc.ListPrices(c.Request.Context(), strings.TrimSpace(c.Query("plan_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[priceReadAttributes], 0, len(resp))
	for _, item := range resp {
		resources = append(resources, priceToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, nil)
}

func (s *Server) GetPriceByID(c *gin.Context) {
	resp, err := s.planSvc.GetPriceByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, priceToResource(resp))
}
