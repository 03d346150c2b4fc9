package remote

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// Endpoint names where one entity type lives on the remote store. Create
// defaults to Collection when empty.
type Endpoint struct {
	Collection string
	Create     string
}

var (
	OrdersEndpoint    = Endpoint{Collection: "/pedidos", Create: "/pedidos/register"}
	CustomersEndpoint = Endpoint{Collection: "/clientes", Create: "/clientes/register"}
	StoresEndpoint    = Endpoint{Collection: "/lojas"}
	ChannelsEndpoint  = Endpoint{Collection: "/canais"}
)

// Resource is the CRUD surface of one entity collection.
type Resource[T any] struct {
	c  *Client
	ep Endpoint
}

func NewResource[T any](c *Client, ep Endpoint) *Resource[T] {
	return &Resource[T]{c: c, ep: ep}
}

// List fetches the whole collection. A null body is an empty collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, "list "+r.name(), http.MethodGet, r.ep.Collection, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, payload any) error {
	path := r.ep.Create
	if path == "" {
		path = r.ep.Collection
	}
	return r.c.do(ctx, "create "+r.name(), http.MethodPost, path, payload, nil)
}

func (r *Resource[T]) Update(ctx context.Context, id int64, payload any) error {
	return r.c.do(ctx, "update "+r.name(), http.MethodPut, r.item(id), payload, nil)
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.c.do(ctx, "delete "+r.name(), http.MethodDelete, r.item(id), nil, nil)
}

// Post sends payload to an action below one record, e.g. /pedidos/7/finalizar.
func (r *Resource[T]) Post(ctx context.Context, id int64, action string, payload any) error {
	path := r.item(id) + "/" + strings.Trim(action, "/")
	return r.c.do(ctx, action+" "+r.name(), http.MethodPost, path, payload, nil)
}

func (r *Resource[T]) item(id int64) string {
	return r.ep.Collection + "/" + strconv.FormatInt(id, 10)
}

func (r *Resource[T]) name() string {
	return strings.TrimPrefix(r.ep.Collection, "/")
}
