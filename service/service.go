// Package service is the typed client for the maintenance booking endpoints.
package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/motohub/go-motohub-client/transport"
)

const basePath = "/service/requests/"

// API is the transport surface this resource calls through.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Patch(ctx context.Context, path string, body any, out any) error
}

// Status values a service request moves through.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Request is a maintenance booking. Cost is the server's decimal string.
type Request struct {
	ID            int64      `json:"id"`
	Customer      int64      `json:"customer"`
	Vehicle       int64      `json:"vehicle"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Cost          string     `json:"cost,omitempty"`
	Date          time.Time  `json:"date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	AssignedTo    *int64     `json:"assigned_to,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Booking is the field set for creating a service request.
type Booking struct {
	VehicleID     int64
	Description   string
	ScheduledDate *time.Time
	Notes         string
}

// StatusUpdate is the admin-side status transition payload.
type StatusUpdate struct {
	Status string  `json:"status"`
	Cost   *string `json:"cost,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

// ListParams filter the service request listing (admin view).
type ListParams struct {
	Status string
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// List fetches a page of service requests.
func (c *Client) List(ctx context.Context, params ListParams) (*transport.Page[Request], error) {
	query := url.Values{}
	if params.Status != "" {
		query.Set("status", params.Status)
	}

	var page transport.Page[Request]
	if err := c.api.Get(ctx, basePath, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one service request by ID.
func (c *Client) Get(ctx context.Context, id int64) (*Request, error) {
	var req Request
	if err := c.api.Get(ctx, detailPath(id), nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Book creates a service request for a vehicle.
func (c *Client) Book(ctx context.Context, booking Booking) (*Request, error) {
	body := map[string]any{
		"vehicle":     booking.VehicleID,
		"description": booking.Description,
		"notes":       booking.Notes,
	}
	if booking.ScheduledDate != nil {
		body["scheduled_date"] = booking.ScheduledDate.Format(time.RFC3339)
	}

	var req Request
	if err := c.api.Post(ctx, basePath, body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Update partially updates a service request (admin only).
func (c *Client) Update(ctx context.Context, id int64, fields map[string]any) (*Request, error) {
	var req Request
	if err := c.api.Patch(ctx, detailPath(id), fields, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus transitions a request's status, optionally recording the
// final cost (admin only).
func (c *Client) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*Request, error) {
	var req Request
	if err := c.api.Patch(ctx, detailPath(id)+"update_status/", update, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Cancel cancels a service request.
func (c *Client) Cancel(ctx context.Context, id int64) (*Request, error) {
	var req Request
	if err := c.api.Patch(ctx, detailPath(id)+"cancel/", nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// MyServices fetches the calling customer's own service requests.
func (c *Client) MyServices(ctx context.Context) (*transport.Page[Request], error) {
	var page transport.Page[Request]
	if err := c.api.Get(ctx, basePath+"my_services/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func detailPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}
