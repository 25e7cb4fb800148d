// Package inventory is the typed client for the vehicle catalogue endpoints.
package inventory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/motohub/go-motohub-client/transport"
)

const basePath = "/inventory/vehicles/"

// API is the transport surface this resource calls through.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Delete(ctx context.Context, path string) error
	PostMultipart(ctx context.Context, path string, form *transport.Form, out any) error
	PatchMultipart(ctx context.Context, path string, form *transport.Form, out any) error
}

// Vehicle is a catalogue entry. Price is the server's decimal string,
// uninterpreted client-side.
type Vehicle struct {
	ID          int64     `json:"id"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Price       string    `json:"price"`
	StockQty    int       `json:"stock_qty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListParams map onto the list endpoint's filter/search/ordering query
// parameters.
type ListParams struct {
	Brand    string
	Search   string
	Ordering string // e.g. "price", "-created_at", "stock_qty"
}

// VehicleInput is the field set for creating or updating a vehicle. The
// endpoint takes multipart form data so an image file can ride along.
type VehicleInput struct {
	Brand       string
	Model       string
	Price       string
	StockQty    int
	Description string
	IsActive    *bool
	ImageName   string // original filename, required when ImageData is set
	ImageData   []byte
}

// StockAction directs UpdateStock to add or remove units.
type StockAction string

const (
	StockAdd    StockAction = "add"
	StockReduce StockAction = "reduce"
)

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// List fetches a page of vehicles. Customers see only active stock; admins
// see everything.
func (c *Client) List(ctx context.Context, params ListParams) (*transport.Page[Vehicle], error) {
	query := url.Values{}
	if params.Brand != "" {
		query.Set("brand", params.Brand)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.Ordering != "" {
		query.Set("ordering", params.Ordering)
	}

	var page transport.Page[Vehicle]
	if err := c.api.Get(ctx, basePath, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one vehicle by ID.
func (c *Client) Get(ctx context.Context, id int64) (*Vehicle, error) {
	var vehicle Vehicle
	if err := c.api.Get(ctx, detailPath(id), nil, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Create adds a vehicle to the catalogue (admin only).
func (c *Client) Create(ctx context.Context, input VehicleInput) (*Vehicle, error) {
	var vehicle Vehicle
	if err := c.api.PostMultipart(ctx, basePath, input.form(), &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Update partially updates a vehicle (admin only).
func (c *Client) Update(ctx context.Context, id int64, input VehicleInput) (*Vehicle, error) {
	var vehicle Vehicle
	if err := c.api.PatchMultipart(ctx, detailPath(id), input.form(), &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Delete removes a vehicle (admin only).
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, detailPath(id))
}

// UpdateStock adds or reduces stock for a vehicle (admin only).
func (c *Client) UpdateStock(ctx context.Context, id int64, quantity int, action StockAction) (*Vehicle, error) {
	body := map[string]any{
		"quantity": quantity,
		"action":   string(action),
	}
	var vehicle Vehicle
	if err := c.api.Post(ctx, detailPath(id)+"update_stock/", body, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (input VehicleInput) form() *transport.Form {
	form := transport.NewForm()
	form.AddField("brand", input.Brand)
	form.AddField("model", input.Model)
	form.AddField("price", input.Price)
	form.AddField("stock_qty", strconv.Itoa(input.StockQty))
	if input.Description != "" {
		form.AddField("description", input.Description)
	}
	if input.IsActive != nil {
		form.AddField("is_active", strconv.FormatBool(*input.IsActive))
	}
	if len(input.ImageData) > 0 {
		form.AddFile("image", input.ImageName, input.ImageData)
	}
	return form
}

func detailPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}
