package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	"github.com/tallyhq/tally/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	CustomerSvc customerdomain.Service
	InvoiceSvc  invoicedomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	customerSvc customerdomain.Service
	invoiceSvc  invoicedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		customerSvc: p.CustomerSvc,
		invoiceSvc:  p.InvoiceSvc,
	}
}

func (s *Service) AddMethod(ctx context.Context, req domain.AddPaymentMethodRequest) (domain.PaymentMethod, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return domain.PaymentMethod{}, domain.ErrInvalidCustomer
	}
	methodType := strings.TrimSpace(req.Type)
	if methodType == "" {
		return domain.PaymentMethod{}, domain.ErrInvalidType
	}

	if _, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: customerID.String()}); err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return domain.PaymentMethod{}, domain.ErrCustomerNotFound
		}
		return domain.PaymentMethod{}, err
	}

	now := s.clock.Now().UTC()
	method := domain.PaymentMethod{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Type:        methodType,
		ExternalRef: strings.TrimSpace(req.ExternalRef),
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Clearing the old default and inserting the new one commit together so
	// the customer never holds two defaults.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if method.IsDefault {
			if err := s.repo.ClearDefaultPaymentMethod(ctx, tx, customerID, now); err != nil {
				return err
			}
		}
		return s.repo.InsertPaymentMethod(ctx, tx, &method)
	})
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	return method, nil
}

func (s *Service) ListMethods(ctx context.Context, req domain.ListPaymentMethodsRequest) ([]domain.PaymentMethod, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}

	items, err := s.repo.ListPaymentMethods(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}

	methods := make([]domain.PaymentMethod, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		methods = append(methods, *item)
	}
	return methods, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.Payment, error) {
	invoiceID, err := uuid.Parse(strings.TrimSpace(req.InvoiceID))
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidInvoice
	}
	status, ok := domain.ParsePaymentStatus(strings.TrimSpace(req.Status))
	if !ok {
		return domain.Payment{}, domain.ErrInvalidStatus
	}
	if req.Amount < 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return domain.Payment{}, domain.ErrInvalidCurrency
	}

	if _, err := s.invoiceSvc.GetByID(ctx, invoiceID.String()); err != nil {
		if errors.Is(err, invoicedomain.ErrNotFound) {
			return domain.Payment{}, domain.ErrInvoiceNotFound
		}
		return domain.Payment{}, err
	}

	now := s.clock.Now().UTC()
	payment := domain.Payment{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Status:      status,
		Amount:      req.Amount,
		Currency:    currency,
		ExternalRef: strings.TrimSpace(req.ExternalRef),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertPayment(ctx, s.db, &payment); err != nil {
		return domain.Payment{}, err
	}

	return payment, nil
}
