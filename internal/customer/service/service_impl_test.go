package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/internal/customer/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Customer{}))

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func TestCreateCustomer(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme Corp",
		Email: "billing@acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", created.Name)
	assert.Equal(t, "billing@acme.test", created.Email)
	assert.Equal(t, fake.Now(), created.CreatedAt)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateCustomer_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "", Email: "a@b.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCreateCustomer_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "First", Email: "dup@acme.test"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Second", Email: "dup@acme.test"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestGetCustomerByID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), domain.GetCustomerRequest{
		ID: "0b9fbe6e-9a43-4a62-bb74-1a1c78bd549b",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCustomers_CursorPagination(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	emails := []string{"a@acme.test", "b@acme.test", "c@acme.test"}
	for _, email := range emails {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: email})
		require.NoError(t, err)
		fake.Advance(time.Second)
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.False(t, second.HasMore)

	seen := map[string]bool{}
	for _, c := range append(first.Customers, second.Customers...) {
		seen[c.Email] = true
	}
	assert.Len(t, seen, 3)
}
