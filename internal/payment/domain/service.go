package domain

import (
	"context"
	"errors"
)

type AddPaymentMethodRequest struct {
	CustomerID  string
	Type        string
	ExternalRef string
	IsDefault   bool
}

type ListPaymentMethodsRequest struct {
	CustomerID string
}

type RecordPaymentRequest struct {
	InvoiceID   string
	Status      string
	Amount      int64
	Currency    string
	ExternalRef string
}

type Service interface {
	// AddMethod stores an instrument. Marking it default atomically clears
	// the customer's previous default.
	AddMethod(context.Context, AddPaymentMethodRequest) (PaymentMethod, error)
	ListMethods(context.Context, ListPaymentMethodsRequest) ([]PaymentMethod, error)
	// RecordPayment stores a settlement outcome reported by an external
	// provider. It never calls the provider.
	RecordPayment(context.Context, RecordPaymentRequest) (Payment, error)
}

var (
	ErrInvalidCustomer  = errors.New("invalid_customer_id")
	ErrInvalidType      = errors.New("invalid_payment_method_type")
	ErrInvalidInvoice   = errors.New("invalid_invoice_id")
	ErrInvalidStatus    = errors.New("invalid_payment_status")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
)
