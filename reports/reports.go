// Package reports is the typed client for the admin reporting endpoints.
// All aggregation happens server-side; these are read-only views.
package reports

import (
	"context"
	"encoding/json"
	"net/url"
)

const (
	salesReportPath     = "/reports/sales/"
	inventoryReportPath = "/reports/inventory/"
	serviceReportPath   = "/reports/service/"
	dashboardPath       = "/reports/dashboard/"
)

// API is the transport surface this resource calls through.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Period bounds a report query. Dates are "YYYY-MM-DD".
type Period struct {
	StartDate string
	EndDate   string
}

// SalesReport summarises sales over a period.
type SalesReport struct {
	Period struct {
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	} `json:"period"`
	Summary struct {
		TotalSales        int     `json:"total_sales"`
		VerifiedSales     int     `json:"verified_sales"`
		PendingSales      int     `json:"pending_sales"`
		CancelledSales    int     `json:"cancelled_sales"`
		TotalRevenue      float64 `json:"total_revenue"`
		TotalQuantitySold int     `json:"total_quantity_sold"`
		AverageSaleAmount float64 `json:"average_sale_amount"`
	} `json:"summary"`
	TopVehicles   []json.RawMessage `json:"top_vehicles"`
	SalesByStatus []json.RawMessage `json:"sales_by_status"`
}

// InventoryReport summarises current stock levels.
type InventoryReport struct {
	Summary struct {
		TotalVehicles      int     `json:"total_vehicles"`
		ActiveVehicles     int     `json:"active_vehicles"`
		InStockVehicles    int     `json:"in_stock_vehicles"`
		LowStockVehicles   int     `json:"low_stock_vehicles"`
		OutOfStockVehicles int     `json:"out_of_stock_vehicles"`
		TotalStockValue    float64 `json:"total_stock_value"`
	} `json:"summary"`
	InventoryByBrand   []json.RawMessage `json:"inventory_by_brand"`
	LowStockVehicles   []json.RawMessage `json:"low_stock_vehicles"`
	OutOfStockVehicles []json.RawMessage `json:"out_of_stock_vehicles"`
}

// ServiceReport summarises service activity over a period.
type ServiceReport struct {
	Period struct {
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	} `json:"period"`
	Summary struct {
		TotalRequests      int     `json:"total_requests"`
		PendingRequests    int     `json:"pending_requests"`
		InProgressRequests int     `json:"in_progress_requests"`
		CompletedRequests  int     `json:"completed_requests"`
		CancelledRequests  int     `json:"cancelled_requests"`
		TotalRevenue       float64 `json:"total_revenue"`
		AverageCost        float64 `json:"average_cost"`
	} `json:"summary"`
	ServicesByStatus []json.RawMessage `json:"services_by_status"`
	ServicesByBrand  []json.RawMessage `json:"services_by_brand"`
}

// Dashboard is the key-metrics summary for the admin landing page.
type Dashboard struct {
	Sales struct {
		RecentSalesCount int     `json:"recent_sales_count"`
		RecentRevenue    float64 `json:"recent_revenue"`
	} `json:"sales"`
	Inventory struct {
		TotalVehicles   int `json:"total_vehicles"`
		LowStockCount   int `json:"low_stock_count"`
		OutOfStockCount int `json:"out_of_stock_count"`
	} `json:"inventory"`
	Service struct {
		PendingRequests   int     `json:"pending_requests"`
		CompletedServices int     `json:"completed_services"`
		RecentRevenue     float64 `json:"recent_revenue"`
	} `json:"service"`
	Customers struct {
		TotalCustomers int `json:"total_customers"`
		NewCustomers   int `json:"new_customers"`
	} `json:"customers"`
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// Sales fetches the sales report for a period (admin only).
func (c *Client) Sales(ctx context.Context, period Period) (*SalesReport, error) {
	var report SalesReport
	if err := c.api.Get(ctx, salesReportPath, period.query(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Inventory fetches the stock report (admin only).
func (c *Client) Inventory(ctx context.Context) (*InventoryReport, error) {
	var report InventoryReport
	if err := c.api.Get(ctx, inventoryReportPath, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Service fetches the service report for a period (admin only).
func (c *Client) Service(ctx context.Context, period Period) (*ServiceReport, error) {
	var report ServiceReport
	if err := c.api.Get(ctx, serviceReportPath, period.query(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Dashboard fetches the key-metrics summary (admin only).
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var dashboard Dashboard
	if err := c.api.Get(ctx, dashboardPath, nil, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (p Period) query() url.Values {
	query := url.Values{}
	if p.StartDate != "" {
		query.Set("start_date", p.StartDate)
	}
	if p.EndDate != "" {
		query.Set("end_date", p.EndDate)
	}
	if len(query) == 0 {
		return nil
	}
	return query
}
