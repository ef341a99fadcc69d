package server

import (
	"github.com/gin-gonic/gin"
)

// The API speaks a resource envelope: requests and responses wrap their
// payload in {"data": {"id", "type", "attributes"}}. Request and response
// attribute shapes are separate structs mapped explicitly per resource.

type resourceRequest[T any] struct {
	Data struct {
		Type       string `json:"type"`
		Attributes T      `json:"attributes"`
	} `json:"data"`
}

type resourceObject[T any] struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes T      `json:"attributes"`
}

type resourceDocument[T any] struct {
	Data resourceObject[T] `json:"data"`
}

type collectionMeta struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

type collectionDocument[T any] struct {
	Data []resourceObject[T] `json:"data"`
	Meta *collectionMeta     `json:"meta,omitempty"`
}

// bindResource decodes an enveloped request body into its attribute struct.
// A malformed envelope aborts the request with a validation error.
func bindResource[T any](c *gin.Context) (T, bool) {
	var req resourceRequest[T]
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		var zero T
		return zero, false
	}
	return req.Data.Attributes, true
}

func newResource[T any](id, resourceType string, attrs T) resourceObject[T] {
	return resourceObject[T]{
		ID:         id,
		Type:       resourceType,
		Attributes: attrs,
	}
}

func respondResource[T any](c *gin.Context, status int, resource resourceObject[T]) {
	c.JSON(status, resourceDocument[T]{Data: resource})
}

func respondCollection[T any](c *gin.Context, status int, resources []resourceObject[T], meta *collectionMeta) {
	if resources == nil {
		resources = []resourceObject[T]{}
	}
	c.JSON(status, collectionDocument[T]{Data: resources, Meta: meta})
}
