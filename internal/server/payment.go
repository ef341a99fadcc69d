package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/tallyhq/tally/internal/payment/domain"
)

const (
	paymentMethodResourceType = "payment-methods"
	paymentResourceType       = "payments"
)

type paymentMethodWriteAttributes struct {
	CustomerID  string `json:"customer_id"`
	Type        string `json:"type"`
	ExternalRef string `json:"external_ref"`
	IsDefault   bool   `json:"is_default"`
}

type paymentMethodReadAttributes struct {
	CustomerID  string `json:"customer_id"`
	Type        string `json:"type"`
	ExternalRef string `json:"external_ref,omitempty"`
	IsDefault   bool   `json:"is_default"`
	CreatedAt   string `json:"created_at"`
}

type paymentWriteAttributes struct {
	InvoiceID   string `json:"invoice_id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ExternalRef string `json:"external_ref"`
}

type paymentReadAttributes struct {
	InvoiceID   string `json:"invoice_id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ExternalRef string `json:"external_ref,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func paymentMethodToResource(method paymentdomain.PaymentMethod) resourceObject[paymentMethodReadAttributes] {
	return newResource(method.ID.String(), paymentMethodResourceType, paymentMethodReadAttributes{
		CustomerID:  method.CustomerID.String(),
		Type:        method.Type,
		ExternalRef: method.ExternalRef,
		IsDefault:   method.IsDefault,
		CreatedAt:   method.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func paymentToResource(payment paymentdomain.Payment) resourceObject[paymentReadAttributes] {
	return newResource(payment.ID.String(), paymentResourceType, paymentReadAttributes{
		InvoiceID:   payment.InvoiceID.String(),
		Status:      string(payment.Status),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		ExternalRef: payment.ExternalRef,
		CreatedAt:   payment.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) AddPaymentMethod(c *gin.Context) {
	attrs, ok := bindResource[paymentMethodWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.paymentSvc.AddMethod(c.Request.Context(), paymentdomain.AddPaymentMethodRequest{
		CustomerID:  strings.TrimSpace(attrs.CustomerID),
		Type:        strings.TrimSpace(attrs.Type),
		ExternalRef: strings.TrimSpace(attrs.ExternalRef),
		IsDefault:   attrs.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, paymentMethodToResource(resp))
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	resp, err := s.paymentSvc.ListMethods(c.Request.Context(), paymentdomain.ListPaymentMethodsRequest{
		CustomerID: strings.TrimSpace(c.Query("customer_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[paymentMethodReadAttributes], 0, len(resp))
	for _, item := range resp {
		resources = append(resources, paymentMethodToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, nil)
}

func (s *Server) RecordPayment(c *gin.Context) {
	attrs, ok := bindResource[paymentWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.paymentSvc.RecordPayment(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		InvoiceID:   strings.TrimSpace(attrs.InvoiceID),
		Status:      strings.TrimSpace(attrs.Status),
		Amount:      attrs.Amount,
		Currency:    strings.TrimSpace(attrs.Currency),
		ExternalRef: strings.TrimSpace(attrs.ExternalRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, paymentToResource(resp))
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidCustomer,
		paymentdomain.ErrInvalidType,
		paymentdomain.ErrInvalidInvoice,
		paymentdomain.ErrInvalidStatus,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidCurrency:
		return true
	default:
		return false
	}
}
