package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/clock"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	customerrepository "github.com/tallyhq/tally/internal/customer/repository"
	customerservice "github.com/tallyhq/tally/internal/customer/service"
	"github.com/tallyhq/tally/internal/invoice/domain"
	"github.com/tallyhq/tally/internal/invoice/repository"
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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   domain.Service

	customerID     string
	subscriptionID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&customerdomain.Customer{},
		&productdomain.Product{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&usagedomain.UsageRecord{},
		&domain.Invoice{},
		&domain.LineItem{},
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
	svc := New(Params{
		DB: conn, Log: log, Clock: fake, Repo: repository.Provide(),
		CustomerSvc: customerSvc, SubscriptionSvc: subscriptionSvc,
	})

	ctx := context.Background()
	customer, err := customerSvc.Create(ctx, customerdomain.CreateCustomerRequest{
		Name: "Acme", Email: "billing@acme.test",
	})
	require.NoError(t, err)
	product, err := productSvc.Create(ctx, productdomain.CreateProductRequest{Name: "API"})
	require.NoError(t, err)
	plan, err := planSvc.Create(ctx, plandomain.CreatePlanRequest{
		ProductID: product.ID.String(), Name: "Pro",
	})
	require.NoError(t, err)
	subscription, err := subscriptionSvc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		CustomerID: customer.ID.String(), PlanID: plan.ID.String(),
	})
	require.NoError(t, err)

	return &testEnv{
		db:             conn,
		clock:          fake,
		svc:            svc,
		customerID:     customer.ID.String(),
		subscriptionID: subscription.ID,
	}
}

func (e *testEnv) insertUsage(t *testing.T, at time.Time, quantity int64) usagedomain.UsageRecord {
	t.Helper()
	record := usagedomain.UsageRecord{
		ID:             uuid.New(),
		SubscriptionID: e.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       quantity,
		Timestamp:      at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	require.NoError(t, e.db.Create(&record).Error)
	return record
}

func (e *testEnv) createDraft(t *testing.T) domain.Invoice {
	t.Helper()
	invoice, err := e.svc.CreateDraft(context.Background(), domain.CreateInvoiceRequest{
		CustomerID: e.customerID,
		Currency:   "USD",
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateDraftInvoice(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDraft(t)
	assert.Equal(t, domain.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, "USD", invoice.Currency)
	assert.EqualValues(t, 0, invoice.TotalAmount)

	_, err := env.svc.CreateDraft(context.Background(), domain.CreateInvoiceRequest{
		CustomerID: "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343", Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = env.svc.CreateDraft(context.Background(), domain.CreateInvoiceRequest{
		CustomerID: env.customerID, Currency: "DOLLARS",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoice := env.createDraft(t)

	open, err := env.svc.Finalize(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOpen, open.Status)

	paid, err := env.svc.MarkPaid(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	// Terminal and idempotent: repeating pay keeps the original stamp.
	env.clock.Advance(time.Hour)
	again, err := env.svc.MarkPaid(ctx, invoice.ID.String())
	require.NoError(t, err)
	require.NotNil(t, again.PaidAt)
	assert.True(t, firstPaidAt.Equal(*again.PaidAt))

	_, err = env.svc.Finalize(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInvoiceLifecycle_DraftCannotBePaid(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDraft(t)
	_, err := env.svc.MarkPaid(context.Background(), invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInvoiceLifecycle_Void(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoice := env.createDraft(t)
	voided, err := env.svc.Void(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusVoid, voided.Status)

	_, err = env.svc.MarkPaid(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestFetchUnbilledUsage_OrderAndCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	third := env.insertUsage(t, base.Add(2*time.Minute), 3)
	first := env.insertUsage(t, base, 1)
	second := env.insertUsage(t, base.Add(time.Minute), 2)

	page1, err := env.svc.FetchUnbilledUsage(ctx, domain.FetchUnbilledUsageRequest{
		SubscriptionID: env.subscriptionID.String(),
		PageSize:       2,
	})
	require.NoError(t, err)
	require.Len(t, page1.UsageRecords, 2)
	assert.Equal(t, first.ID, page1.UsageRecords[0].ID)
	assert.Equal(t, second.ID, page1.UsageRecords[1].ID)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextPageToken)

	page2, err := env.svc.FetchUnbilledUsage(ctx, domain.FetchUnbilledUsageRequest{
		SubscriptionID: env.subscriptionID.String(),
		PageSize:       2,
		PageToken:      page1.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page2.UsageRecords, 1)
	assert.Equal(t, third.ID, page2.UsageRecords[0].ID)
	assert.False(t, page2.HasMore)
}

func TestFetchUnbilledUsage_WindowAndClaimed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	inWindow := env.insertUsage(t, base, 1)
	env.insertUsage(t, base.Add(2*time.Hour), 2)

	to := base.Add(time.Hour)
	resp, err := env.svc.FetchUnbilledUsage(ctx, domain.FetchUnbilledUsageRequest{
		SubscriptionID: env.subscriptionID.String(),
		To:             &to,
	})
	require.NoError(t, err)
	require.Len(t, resp.UsageRecords, 1)
	assert.Equal(t, inWindow.ID, resp.UsageRecords[0].ID)

	invoice := env.createDraft(t)
	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: inWindow.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
	})
	require.NoError(t, err)

	resp, err = env.svc.FetchUnbilledUsage(ctx, domain.FetchUnbilledUsageRequest{
		SubscriptionID: env.subscriptionID.String(),
		To:             &to,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.UsageRecords)
}

func TestFetchUnbilledUsage_UnknownSubscription(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.FetchUnbilledUsage(context.Background(), domain.FetchUnbilledUsageRequest{
		SubscriptionID: "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343",
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestAttachLineItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recordA := env.insertUsage(t, env.clock.Now(), 10)
	recordB := env.insertUsage(t, env.clock.Now().Add(time.Minute), 20)
	invoice := env.createDraft(t)

	itemA, err := env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: recordA.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        250,
		Description:   "api calls",
	})
	require.NoError(t, err)
	assert.Equal(t, recordA.ID, itemA.UsageRecordID)

	got, err := env.svc.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 250, got.TotalAmount)

	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: recordB.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        150,
	})
	require.NoError(t, err)

	got, err = env.svc.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 400, got.TotalAmount)

	var claimed usagedomain.UsageRecord
	require.NoError(t, env.db.First(&claimed, "id = ?", recordA.ID).Error)
	require.NotNil(t, claimed.LineItemID)
	assert.Equal(t, itemA.ID, *claimed.LineItemID)
}

func TestAttachLineItem_ExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record := env.insertUsage(t, env.clock.Now(), 10)
	invoice := env.createDraft(t)
	other := env.createDraft(t)

	_, err := env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: record.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
	})
	require.NoError(t, err)

	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: record.ID.String(),
		InvoiceID:     other.ID.String(),
		Amount:        100,
	})
	assert.ErrorIs(t, err, domain.ErrUsageAlreadyBilled)

	// The losing attach must leave nothing behind.
	otherInvoice, err := env.svc.GetByID(ctx, other.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 0, otherInvoice.TotalAmount)

	var count int64
	require.NoError(t, env.db.Model(&domain.LineItem{}).Where("invoice_id = ?", other.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAttachLineItem_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record := env.insertUsage(t, env.clock.Now(), 10)
	invoice := env.createDraft(t)

	_, err := env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343",
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
	})
	assert.ErrorIs(t, err, domain.ErrUsageNotFound)

	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: record.ID.String(),
		InvoiceID:     "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343",
		Amount:        100,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: record.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.svc.Finalize(ctx, invoice.ID.String())
	require.NoError(t, err)

	_, err = env.svc.AttachLineItem(ctx, domain.AttachLineItemRequest{
		UsageRecordID: record.ID.String(),
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
