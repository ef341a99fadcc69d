package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
)

const (
	invoiceResourceType  = "invoices"
	lineItemResourceType = "line-items"
)

type invoiceWriteAttributes struct {
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Currency       string `json:"currency"`
	DueDate        string `json:"due_date"`
}

type invoiceReadAttributes struct {
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Status         string `json:"status"`
	Currency       string `json:"currency"`
	TotalAmount    int64  `json:"total_amount"`
	DueDate        string `json:"due_date,omitempty"`
	PaidAt         string `json:"paid_at,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type lineItemWriteAttributes struct {
	InvoiceID   string `json:"invoice_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type lineItemReadAttributes struct {
	InvoiceID     string `json:"invoice_id"`
	UsageRecordID string `json:"usage_record_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func invoiceToResource(invoice invoicedomain.Invoice) resourceObject[invoiceReadAttributes] {
	attrs := invoiceReadAttributes{
		CustomerID:  invoice.CustomerID.String(),
		Status:      string(invoice.Status),
		Currency:    invoice.Currency,
		TotalAmount: invoice.TotalAmount,
		CreatedAt:   invoice.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   invoice.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if invoice.SubscriptionID != nil {
		attrs.SubscriptionID = invoice.SubscriptionID.String()
	}
	if invoice.DueDate != nil {
		attrs.DueDate = invoice.DueDate.UTC().Format(time.RFC3339)
	}
	if invoice.PaidAt != nil {
		attrs.PaidAt = invoice.PaidAt.UTC().Format(time.RFC3339)
	}
	return newResource(invoice.ID.String(), invoiceResourceType, attrs)
}

func lineItemToResource(item invoicedomain.LineItem) resourceObject[lineItemReadAttributes] {
	return newResource(item.ID.String(), lineItemResourceType, lineItemReadAttributes{
		InvoiceID:     item.InvoiceID.String(),
		UsageRecordID: item.UsageRecordID.String(),
		Amount:        item.Amount,
		Description:   item.Description,
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	attrs, ok := bindResource[invoiceWriteAttributes](c)
	if !ok {
		return
	}

	var dueDate *time.Time
	if raw := strings.TrimSpace(attrs.DueDate); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
			return
		}
		dueDate = &parsed
	}

	resp, err := s.invoiceSvc.CreateDraft(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		CustomerID:     strings.TrimSpace(attrs.CustomerID),
		SubscriptionID: strings.TrimSpace(attrs.SubscriptionID),
		Currency:       strings.TrimSpace(attrs.Currency),
		DueDate:        dueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordInvoiceCreated(string(resp.Status))
	}

	respondResource(c, http.StatusCreated, invoiceToResource(resp))
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, invoiceToResource(resp))
}

func (s *Server) FinalizeInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Finalize(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, invoiceToResource(resp))
}

func (s *Server) PayInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, invoiceToResource(resp))
}

func (s *Server) VoidInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Void(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, invoiceToResource(resp))
}

// ListUnbilledUsage is the aggregator read: usage for one subscription not
// yet claimed by a line item, oldest first, resumable by cursor.
func (s *Server) ListUnbilledUsage(c *gin.Context) {
	var query struct {
		pagination.Pagination
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var from, to *time.Time
	if raw := strings.TrimSpace(query.From); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
			return
		}
		from = &parsed
	}
	if raw := strings.TrimSpace(query.To); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
			return
		}
		to = &parsed
	}

	resp, err := s.invoiceSvc.FetchUnbilledUsage(c.Request.Context(), invoicedomain.FetchUnbilledUsageRequest{
		SubscriptionID: strings.TrimSpace(c.Param("id")),
		From:           from,
		To:             to,
		PageToken:      query.PageToken,
		PageSize:       int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[usageReadAttributes], 0, len(resp.UsageRecords))
	for _, item := range resp.UsageRecords {
		resources = append(resources, usageToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, &collectionMeta{
		NextPageToken: resp.NextPageToken,
		HasMore:       resp.HasMore,
	})
}

func (s *Server) AttachLineItem(c *gin.Context) {
	attrs, ok := bindResource[lineItemWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.invoiceSvc.AttachLineItem(c.Request.Context(), invoicedomain.AttachLineItemRequest{
		UsageRecordID: strings.TrimSpace(c.Param("id")),
		InvoiceID:     strings.TrimSpace(attrs.InvoiceID),
		Amount:        attrs.Amount,
		Description:   strings.TrimSpace(attrs.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, lineItemToResource(*resp))
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidCustomer,
		invoicedomain.ErrInvalidSubscription,
		invoicedomain.ErrInvalidCurrency,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidUsageRecord:
		return true
	default:
		return false
	}
}
