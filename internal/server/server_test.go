package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/config"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	customerrepository "github.com/tallyhq/tally/internal/customer/repository"
	customerservice "github.com/tallyhq/tally/internal/customer/service"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	invoicerepository "github.com/tallyhq/tally/internal/invoice/repository"
	invoiceservice "github.com/tallyhq/tally/internal/invoice/service"
	paymentdomain "github.com/tallyhq/tally/internal/payment/domain"
	paymentrepository "github.com/tallyhq/tally/internal/payment/repository"
	paymentservice "github.com/tallyhq/tally/internal/payment/service"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	planrepository "github.com/tallyhq/tally/internal/plan/repository"
	planservice "github.com/tallyhq/tally/internal/plan/service"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	productrepository "github.com/tallyhq/tally/internal/product/repository"
	productservice "github.com/tallyhq/tally/internal/product/service"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	subscriptionrepository "github.com/tallyhq/tally/internal/subscription/repository"
	subscriptionservice "github.com/tallyhq/tally/internal/subscription/service"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	usagerepository "github.com/tallyhq/tally/internal/usage/repository"
	usageservice "github.com/tallyhq/tally/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	srv   *Server
	clock *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&customerdomain.Customer{},
		&productdomain.Product{},
		&plandomain.Plan{},
		&plandomain.Price{},
		&subscriptiondomain.Subscription{},
		&usagedomain.UsageRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.PaymentMethod{},
		&paymentdomain.Payment{},
	))

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	customerSvc := customerservice.New(customerservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: customerrepository.Provide(),
	})
	productSvc := productservice.New(productservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: productrepository.Provide(),
	})
	planSvc := planservice.New(planservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: planrepository.Provide(), ProductSvc: productSvc,
	})
	subscriptionSvc := subscriptionservice.New(subscriptionservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: subscriptionrepository.Provide(),
		CustomerSvc: customerSvc, PlanSvc: planSvc,
	})
	usageSvc := usageservice.New(usageservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: usagerepository.Provide(),
		SubscriptionSvc: subscriptionSvc,
	})
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: invoicerepository.Provide(),
		CustomerSvc: customerSvc, SubscriptionSvc: subscriptionSvc,
	})
	paymentSvc := paymentservice.New(paymentservice.Params{
		DB: conn, Log: log, Clock: fake, Repo: paymentrepository.Provide(),
		CustomerSvc: customerSvc, InvoiceSvc: invoiceSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{AppName: "tally"},
		CustomerSvc:     customerSvc,
		ProductSvc:      productSvc,
		PlanSvc:         planSvc,
		SubscriptionSvc: subscriptionSvc,
		UsageSvc:        usageSvc,
		InvoiceSvc:      invoiceSvc,
		PaymentSvc:      paymentSvc,
	})

	return &testServer{srv: srv, clock: fake}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func envelope(resourceType string, attributes map[string]any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"type":       resourceType,
			"attributes": attributes,
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func resourceFrom(t *testing.T, body map[string]any) (string, string, map[string]any) {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response must carry a data envelope")
	id, _ := data["id"].(string)
	resourceType, _ := data["type"].(string)
	attrs, _ := data["attributes"].(map[string]any)
	return id, resourceType, attrs
}

func (ts *testServer) createCustomer(t *testing.T, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/customers", envelope("customers", map[string]any{
		"name":  "Acme",
		"email": email,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _, _ := resourceFrom(t, decodeBody(t, rec))
	require.NotEmpty(t, id)
	return id
}

func (ts *testServer) createSubscription(t *testing.T) string {
	t.Helper()
	customerID := ts.createCustomer(t, "subs@acme.test")

	rec := ts.do(t, http.MethodPost, "/api/v1/products", envelope("products", map[string]any{"name": "API"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID, _, _ := resourceFrom(t, decodeBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/plans", envelope("plans", map[string]any{
		"product_id": productID,
		"name":       "Pro",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	planID, _, _ := resourceFrom(t, decodeBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/subscriptions", envelope("subscriptions", map[string]any{
		"customer_id": customerID,
		"plan_id":     planID,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	subscriptionID, _, _ := resourceFrom(t, decodeBody(t, rec))
	return subscriptionID
}

func TestCreateCustomerEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/customers", envelope("customers", map[string]any{
		"name":  "Acme",
		"email": "billing@acme.test",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	id, resourceType, attrs := resourceFrom(t, decodeBody(t, rec))
	assert.NotEmpty(t, id)
	assert.Equal(t, "customers", resourceType)
	assert.Equal(t, "billing@acme.test", attrs["email"])

	rec = ts.do(t, http.MethodGet, "/api/v1/customers/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateCustomerEndpoint_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.createCustomer(t, "dup@acme.test")

	rec := ts.do(t, http.MethodPost, "/api/v1/customers", envelope("customers", map[string]any{
		"name":  "Other",
		"email": "dup@acme.test",
	}))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "conflict", errBody["type"])
}

func TestCreateCustomerEndpoint_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/customers", envelope("customers", map[string]any{
		"name":  "Acme",
		"email": "not-an-email",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "validation_error", errBody["type"])
}

func TestGetCustomerEndpoint_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/customers/5f0a1de5-41f1-4cf6-bd91-fe3ea03df343", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_found", errBody["type"])
}

func TestPatchSubscriptionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	subscriptionID := ts.createSubscription(t)

	rec := ts.do(t, http.MethodPatch, "/api/v1/subscriptions/"+subscriptionID, envelope("subscriptions", map[string]any{
		"status": "canceled",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, _, attrs := resourceFrom(t, decodeBody(t, rec))
	assert.Equal(t, "canceled", attrs["status"])
	assert.NotEmpty(t, attrs["end_date"])

	// canceled is terminal
	rec = ts.do(t, http.MethodPatch, "/api/v1/subscriptions/"+subscriptionID, envelope("subscriptions", map[string]any{
		"status": "active",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invalid_state", errBody["type"])
}

func TestRecordUsageEndpoint(t *testing.T) {
	ts := newTestServer(t)
	subscriptionID := ts.createSubscription(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/usage-records", envelope("usage-records", map[string]any{
		"subscription_id": subscriptionID,
		"metric_name":     "api_calls",
		"quantity":        25,
	}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	_, resourceType, attrs := resourceFrom(t, decodeBody(t, rec))
	assert.Equal(t, "usage-records", resourceType)
	assert.EqualValues(t, 25, attrs["quantity"])

	rec = ts.do(t, http.MethodPost, "/api/v1/usage-records", envelope("usage-records", map[string]any{
		"subscription_id": subscriptionID,
		"metric_name":     "api_calls",
		"quantity":        -5,
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/usage-records", envelope("usage-records", map[string]any{
		"subscription_id": "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343",
		"metric_name":     "api_calls",
		"quantity":        1,
	}))
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestAttachLineItemEndpoint_DoubleAttachConflicts(t *testing.T) {
	ts := newTestServer(t)
	subscriptionID := ts.createSubscription(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/usage-records", envelope("usage-records", map[string]any{
		"subscription_id": subscriptionID,
		"metric_name":     "api_calls",
		"quantity":        10,
	}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	usageID, _, _ := resourceFrom(t, decodeBody(t, rec))

	customerID := ts.createCustomer(t, "invoices@acme.test")
	rec = ts.do(t, http.MethodPost, "/api/v1/invoices", envelope("invoices", map[string]any{
		"customer_id": customerID,
		"currency":    "USD",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	invoiceID, _, _ := resourceFrom(t, decodeBody(t, rec))

	attach := envelope("line-items", map[string]any{
		"invoice_id": invoiceID,
		"amount":     100,
	})

	rec = ts.do(t, http.MethodPost, "/api/v1/usage-records/"+usageID+"/line-item", attach)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/usage-records/"+usageID+"/line-item", attach)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, attrs := resourceFrom(t, decodeBody(t, rec))
	assert.EqualValues(t, 100, attrs["total_amount"])
}

func TestListUnbilledUsageEndpoint(t *testing.T) {
	ts := newTestServer(t)
	subscriptionID := ts.createSubscription(t)

	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/usage-records", envelope("usage-records", map[string]any{
			"subscription_id": subscriptionID,
			"metric_name":     "api_calls",
			"quantity":        1,
		}))
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		ts.clock.Advance(time.Second)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/subscriptions/"+subscriptionID+"/unbilled-usage?page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)

	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, meta["has_more"])
	assert.NotEmpty(t, meta["next_page_token"])
}
