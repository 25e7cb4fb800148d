// Package sales is the typed client for the purchase endpoints.
package sales

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/motohub/go-motohub-client/transport"
)

const basePath = "/sales/sales/"

// API is the transport surface this resource calls through.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Patch(ctx context.Context, path string, body any, out any) error
}

// Status values a sale moves through.
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusCancelled = "cancelled"
)

// Sale is a purchase record. Amount is the server's decimal string.
type Sale struct {
	ID         int64      `json:"id"`
	Customer   int64      `json:"customer"`
	Vehicle    int64      `json:"vehicle"`
	Amount     string     `json:"amount"`
	Quantity   int        `json:"quantity"`
	Status     string     `json:"status"`
	Date       time.Time  `json:"date"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy *int64     `json:"verified_by,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// ListParams filter the sales listing (admin view).
type ListParams struct {
	Status string
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// List fetches a page of sales.
func (c *Client) List(ctx context.Context, params ListParams) (*transport.Page[Sale], error) {
	query := url.Values{}
	if params.Status != "" {
		query.Set("status", params.Status)
	}

	var page transport.Page[Sale]
	if err := c.api.Get(ctx, basePath, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one sale by ID.
func (c *Client) Get(ctx context.Context, id int64) (*Sale, error) {
	var sale Sale
	if err := c.api.Get(ctx, detailPath(id), nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Purchase places a purchase request for a vehicle.
func (c *Client) Purchase(ctx context.Context, vehicleID int64, quantity int, notes string) (*Sale, error) {
	body := map[string]any{
		"vehicle":  vehicleID,
		"quantity": quantity,
		"notes":    notes,
	}
	var sale Sale
	if err := c.api.Post(ctx, basePath, body, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Verify marks a pending sale as verified (admin only).
func (c *Client) Verify(ctx context.Context, id int64) (*Sale, error) {
	var sale Sale
	if err := c.api.Patch(ctx, detailPath(id)+"verify/", nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Cancel cancels a sale.
func (c *Client) Cancel(ctx context.Context, id int64) (*Sale, error) {
	var sale Sale
	if err := c.api.Patch(ctx, detailPath(id)+"cancel/", nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// MyPurchases fetches the calling customer's own purchases.
func (c *Client) MyPurchases(ctx context.Context) (*transport.Page[Sale], error) {
	var page transport.Page[Sale]
	if err := c.api.Get(ctx, basePath+"my_purchases/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func detailPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}
