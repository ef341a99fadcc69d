package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
)

const customerResourceType = "customers"

type customerWriteAttributes struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	ExternalPaymentRef string `json:"external_payment_ref"`
}

type customerReadAttributes struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	ExternalPaymentRef string `json:"external_payment_ref,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func customerToResource(customer customerdomain.Customer) resourceObject[customerReadAttributes] {
	attrs := customerReadAttributes{
		Name:      customer.Name,
		Email:     customer.Email,
		CreatedAt: customer.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: customer.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if customer.ExternalPaymentRef != nil {
		attrs.ExternalPaymentRef = *customer.ExternalPaymentRef
	}
	return newResource(customer.ID.String(), customerResourceType, attrs)
}

func (s *Server) CreateCustomer(c *gin.Context) {
	attrs, ok := bindResource[customerWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:               strings.TrimSpace(attrs.Name),
		Email:              strings.TrimSpace(attrs.Email),
		ExternalPaymentRef: strings.TrimSpace(attrs.ExternalPaymentRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, customerToResource(resp))
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name  string `form:"name"`
		Email string `form:"email"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Email:     strings.TrimSpace(query.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[customerReadAttributes], 0, len(resp.Customers))
	for _, item := range resp.Customers {
		resources = append(resources, customerToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, &collectionMeta{
		NextPageToken: resp.NextPageToken,
		HasMore:       resp.HasMore,
	})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, customerToResource(resp))
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
