package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/clock"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	customerrepository "github.com/tallyhq/tally/internal/customer/repository"
	customerservice "github.com/tallyhq/tally/internal/customer/service"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	planrepository "github.com/tallyhq/tally/internal/plan/repository"
	planservice "github.com/tallyhq/tally/internal/plan/service"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	productrepository "github.com/tallyhq/tally/internal/product/repository"
	productservice "github.com/tallyhq/tally/internal/product/service"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	subscriptionrepository "github.com/tallyhq/tally/internal/subscription/repository"
	subscriptionservice "github.com/tallyhq/tally/internal/subscription/service"
	"github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/internal/usage/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	clock           *clock.FakeClock
	svc             domain.Service
	subscriptionSvc subscriptiondomain.Service

	subscriptionID string
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
		&domain.UsageRecord{},
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
		SubscriptionSvc: subscriptionSvc,
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
		clock:           fake,
		svc:             svc,
		subscriptionSvc: subscriptionSvc,
		subscriptionID:  subscription.ID.String(),
	}
}

func TestRecordUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       42,
	})
	require.NoError(t, err)
	assert.Equal(t, "api_calls", record.MetricName)
	assert.EqualValues(t, 42, record.Quantity)
	assert.Equal(t, env.clock.Now(), record.Timestamp)
	assert.Nil(t, record.LineItemID)
}

func TestRecordUsage_ExplicitTimestamp(t *testing.T) {
	env := newTestEnv(t)

	at := time.Date(2025, 5, 20, 8, 30, 0, 0, time.UTC)
	record, err := env.svc.Record(context.Background(), domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       1,
		Timestamp:      at,
	})
	require.NoError(t, err)
	assert.Equal(t, at, record.Timestamp)
}

func TestRecordUsage_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID, MetricName: "api_calls", Quantity: -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID, MetricName: "  ", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMetric)

	_, err = env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: "garbage", MetricName: "api_calls", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSubscription)
}

func TestRecordUsage_UnknownSubscription(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Record(context.Background(), domain.RecordUsageRequest{
		SubscriptionID: "5f0a1de5-41f1-4cf6-bd91-fe3ea03df343",
		MetricName:     "api_calls",
		Quantity:       1,
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestRecordUsage_CanceledSubscriptionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.subscriptionSvc.UpdateStatus(ctx, subscriptiondomain.UpdateSubscriptionStatusRequest{
		ID: env.subscriptionID, Status: "canceled",
	})
	require.NoError(t, err)

	_, err = env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       1,
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionCanceled)
}

func TestRecordUsage_PastDueStillAccrues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.subscriptionSvc.UpdateStatus(ctx, subscriptiondomain.UpdateSubscriptionStatusRequest{
		ID: env.subscriptionID, Status: "past_due",
	})
	require.NoError(t, err)

	_, err = env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       1,
	})
	require.NoError(t, err)
}

func TestRecordUsage_IdempotencyKeyDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       10,
		IdempotencyKey: "req-123",
	})
	require.NoError(t, err)

	// A retry with the same key returns the stored record even if the
	// payload drifted.
	second, err := env.svc.Record(ctx, domain.RecordUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
		Quantity:       999,
		IdempotencyKey: "req-123",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 10, second.Quantity)

	resp, err := env.svc.List(ctx, domain.ListUsageRequest{SubscriptionID: env.subscriptionID})
	require.NoError(t, err)
	assert.Len(t, resp.UsageRecords, 1)
}

func TestListUsage_MetricFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, metric := range []string{"api_calls", "api_calls", "storage_gb"} {
		_, err := env.svc.Record(ctx, domain.RecordUsageRequest{
			SubscriptionID: env.subscriptionID, MetricName: metric, Quantity: 1,
		})
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}

	resp, err := env.svc.List(ctx, domain.ListUsageRequest{
		SubscriptionID: env.subscriptionID,
		MetricName:     "api_calls",
	})
	require.NoError(t, err)
	assert.Len(t, resp.UsageRecords, 2)
}
