package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
)

const productResourceType = "products"

type productWriteAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type productReadAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func productToResource(product productdomain.Product) resourceObject[productReadAttributes] {
	attrs := productReadAttributes{
		Name:      product.Name,
		CreatedAt: product.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: product.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if product.Description != nil {
		attrs.Description = *product.Description
	}
	return newResource(product.ID.String(), productResourceType, attrs)
}

func (s *Server) CreateProduct(c *gin.Context) {
	attrs, ok := bindResource[productWriteAttributes](c)
	if !ok {
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		Name:        strings.TrimSpace(attrs.Name),
		Description: strings.TrimSpace(attrs.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusCreated, productToResource(resp))
}

func (s *Server) ListProducts(c *gin.Context) {
	resp, err := s.productSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resources := make([]resourceObject[productReadAttributes], 0, len(resp))
	for _, item := range resp {
		resources = append(resources, productToResource(item))
	}

	respondCollection(c, http.StatusOK, resources, nil)
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondResource(c, http.StatusOK, productToResource(resp))
}

func isProductValidationError(err error) bool {
	switch err {
	case productdomain.ErrInvalidName,
		productdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
