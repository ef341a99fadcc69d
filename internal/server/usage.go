package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
)

const usageResourceType = "usage-records"

type usageWriteAttributes struct {
	SubscriptionID string `json:"subscription_id"`
	MetricName     string `json:"metric_name"`
	Quantity       int64  `json:"quantity"`
	Timestamp      string `json:"timestamp"`
	IdempotencyKey string `json:"idempotency_key"`
}

type usageReadAttributes struct {
	SubscriptionID string `json:"subscription_id"`
	MetricName     string `json:"metric_name"`
	Quantity       int64  `json:"quantity"`
	Timestamp      string `json:"timestamp"`
	LineItemID     string `json:"line_item_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func usageToResource(record usagedomain.UsageRecord) resourceObject[usageReadAttributes] {
	attrs := usageReadAttributes{
		SubscriptionID: record.SubscriptionID.String(),
		MetricName:     record.MetricName,
		Quantity:       record.Quantity,
		Timestamp:      record.Timestamp.UTC().Format(time.RFC3339),
		CreatedAt:      record.CreatedAt.UTC().Format(time.RFC3339),
	}
	if record.LineItemID != nil {
		attrs.LineItemID = record.LineItemID.String()
	}
	return newResource(record.ID.String(), usageResourceType, attrs)
}

// RecordUsage accepts a usage event and answers 202: the record is durable,
// billing happens later.
func (s *Server) RecordUsage(c *gin.Context) {
	attrs, ok := bindResource[usageWriteAttributes](c)
	if !ok {
		return
	}

	var timestamp time.Time
	if raw := strings.TrimSpace(attrs.Timestamp); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("timestamp", "invalid_timestamp", "invalid timestamp"))
			return
		}
		timestamp = parsed
	}

	resp, err := s.usageSvc.Record(c.Request.Context(), usagedomain.RecordUsageRequest{
		SubscriptionID: strings.TrimSpace(attrs.SubscriptionID),
		MetricName:     strings.TrimSpace(attrs.MetricName),
		Quantity:       attrs.Quantity,
		Timestamp:      timestamp,
		IdempotencyKey: strings.TrimSpace(attrs.IdempotencyKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordUsageEvent(resp.MetricName)
	}

	respondResource(c, http.StatusAccepted, usageToResource(*resp))
}

func (s *Server) ListUsageRecords(c *gin.Context) {
	var query struct {
		pagination.Pagination
		SubscriptionID string `form:"subscription_id"`
		MetricName     string `form:"metric_name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.usageSvc.List(c.Request.Context(), usagedomain.ListUsageRequest{
		SubscriptionID: strings.TrimSpace(query.SubscriptionID),
		MetricName:     strings.TrimSpace(query.MetricName),
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

func isUsageValidationError(err error) bool {
	switch err {
	case usagedomain.ErrInvalidSubscription,
		usagedomain.ErrInvalidMetric,
		usagedomain.ErrInvalidQuantity:
		return true
	default:
		return false
	}
}
