package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
)

const subscriptionResourceType = "subscriptions"

type subscriptionCreateAttributes struct {
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
}

type subscriptionUpdateAttributes struct {
	Status string `json:"status"`
}

type subscriptionReadAttributes struct {
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func subscriptionToResource(subscription subscriptiondomain.Subscription) resourceObject[subscriptionReadAttributes] {
	attrs := subscriptionReadAttributes{
		CustomerID: subscription.CustomerID.String(),
		PlanID:     subscription.PlanID.String(),
		Status:     string(subscription.Status),
		StartDate:  subscription.StartDate.UTC().Format(time.RFC3339),
		CreatedAt:  subscription.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  subscription.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if subscription.EndDate != nil {
		attrs.EndDate = subscription.EndDate.UTC().Format(time.RFC3339)
	}
	return newResource(subscription.ID.String(), subscriptionResourceType, attrs)
}

func (s *Server) CreateSubscription(c *gin.Context) {
	attrs, ok := bindResource[subscriptionCreateAttributes](c)
	if !ok {
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		CustomerID: strings.TrimSpace(attrs.CustomerID),
		PlanID:     strings.TrimSpace(attrs.PlanID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, subscriptionToResource(resp))
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	attrs, ok := bindResource[subscriptionUpdateAttributes](c)
	if !ok {
		return
	}

	resp, err := s.subscriptionSvc.UpdateStatus(c.Request.Context(), subscriptiondomain.UpdateSubscriptionStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(attrs.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, subscriptionToResource(resp))
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, subscriptionToResource(resp))
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListSubscriptionRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[subscriptionReadAttributes], 0, len(resp.Subscriptions))
	for _, item := range resp.Subscriptions {
		resources = append(resources, subscriptionToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, &collectionMeta{
		NextPageToken: resp.NextPageToken,
		HasMore:       resp.HasMore,
	})
}

func isSubscriptionValidationError(err error) bool {
	switch err {
	case subscriptiondomain.ErrInvalidID,
		subscriptiondomain.ErrInvalidCustomer,
		subscriptiondomain.ErrInvalidPlan,
		subscriptiondomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}
