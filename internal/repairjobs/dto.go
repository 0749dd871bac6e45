package repairjobs

import (
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CreateJobRequest is the desired state of a new job.
type CreateJobRequest struct {
	CustomerID *int64          `json:"customerId" validate:"omitempty,gt=0"`
	SalePrice  decimal.Decimal `json:"salePrice"`
	Notes      *string         `json:"notes" validate:"omitempty,max=500"`
	Items      []LineItem      `json:"items" validate:"required,dive"`
}

// UpdateJobRequest replaces the scalar fields of a job. Items are only
// reconciled when present; an explicit empty list is rejected.
type UpdateJobRequest struct {
	CustomerID *int64          `json:"customerId" validate:"omitempty,gt=0"`
	SalePrice  decimal.Decimal `json:"salePrice"`
	Notes      *string         `json:"notes" validate:"omitempty,max=500"`
	Items      *[]LineItem     `json:"items" validate:"omitempty,dive"`
}

// UpdateStatusRequest moves a job through its lifecycle.
type UpdateStatusRequest struct {
	Status               string `json:"status" validate:"required"`
	IsReturnedToCustomer *bool  `json:"isReturnedToCustomer"`
}

// ListParams holds the optional listing filters.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// JobItemView is one line of a job as shown to clients.
type JobItemView struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	LineCost    decimal.Decimal `json:"lineCost"`
}

// JobView is the denormalized job returned by every job operation.
type JobView struct {
	ID                   int64           `json:"id"`
	CreatedAt            time.Time       `json:"createdAt"`
	CustomerID           *int64          `json:"customerId"`
	CustomerName         *string         `json:"customerName"`
	SalePrice            decimal.Decimal `json:"salePrice"`
	PartsCost            decimal.Decimal `json:"partsCost"`
	Profit               decimal.Decimal `json:"profit"`
	Notes                *string         `json:"notes"`
	Status               enums.JobStatus `json:"status"`
	CompletedAt          *time.Time      `json:"completedAt"`
	IsReturnedToCustomer bool            `json:"isReturnedToCustomer"`
	ReturnedAt           *time.Time      `json:"returnedAt"`
	Items                []JobItemView   `json:"items"`
}

// JobListResult is one page of jobs.
type JobListResult struct {
	Jobs       []JobView `json:"jobs"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// SummaryView carries the figures of the analytics page.
type SummaryView struct {
	Count         int64           `json:"count"`
	TotalSales    decimal.Decimal `json:"totalSales"`
	PartsCost     decimal.Decimal `json:"partsCost"`
	Profit        decimal.Decimal `json:"profit"`
	AverageSale   decimal.Decimal `json:"averageSale"`
	MarginPercent decimal.Decimal `json:"marginPercent"`
}

// NewJobView maps a job loaded with customer and item products.
func NewJobView(job *models.RepairJob) *JobView {
	if job == nil {
		return nil
	}
	view := &JobView{
		ID:                   job.ID,
		CreatedAt:            job.CreatedAt,
		CustomerID:           job.CustomerID,
		SalePrice:            job.SalePrice,
		PartsCost:            job.PartsCost(),
		Profit:               job.Profit(),
		Notes:                job.Notes,
		Status:               job.Status,
		CompletedAt:          job.CompletedAt,
		IsReturnedToCustomer: job.IsReturnedToCustomer,
		ReturnedAt:           job.ReturnedAt,
		Items:                make([]JobItemView, 0, len(job.Items)),
	}
	if job.Customer != nil {
		name := job.Customer.DisplayName()
		view.CustomerName = &name
	}
	for _, item := range job.Items {
		line := JobItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			LineCost:  item.LineCost(),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		view.Items = append(view.Items, line)
	}
	return view
}

func newSummaryView(row SummaryRow) *SummaryView {
	view := &SummaryView{
		Count:         row.Count,
		TotalSales:    row.TotalSales.Round(2),
		PartsCost:     row.PartsCost.Round(2),
		Profit:        row.TotalSales.Sub(row.PartsCost).Round(2),
		AverageSale:   decimal.Zero,
		MarginPercent: decimal.Zero,
	}
	if row.Count > 0 {
		view.AverageSale = row.TotalSales.Div(decimal.NewFromInt(row.Count)).Round(2)
	}
	if row.TotalSales.IsPositive() {
		view.MarginPercent = row.TotalSales.Sub(row.PartsCost).
			Div(row.TotalSales).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return view
}
