package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WorkOrderStatus string

const (
	WorkOrderOpen       WorkOrderStatus = "open"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
)

// WorkOrder is a maintenance order against a vehicle, optionally raised from a DVIR inspection.
type WorkOrder struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"-" db:"organization_id"`
	VehicleID      string          `json:"vehicleId" db:"vehicle_id"`
	Title          string          `json:"title" db:"title"`
	Status         WorkOrderStatus `json:"status" db:"status"`
	LaborCost      decimal.Decimal `json:"laborCost" db:"labor_cost"`
	PartsCost      decimal.Decimal `json:"partsCost" db:"parts_cost"`
	DVIRDefects    int             `json:"dvirDefects" db:"dvir_defects"`
	OpenedAt       time.Time       `json:"openedAt" db:"opened_at"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
}

func (w WorkOrder) TotalCost() decimal.Decimal {
	return w.LaborCost.Add(w.PartsCost)
}

type WorkOrderBucket struct {
	Key         string          `json:"key"`
	Count       int             `json:"count"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	DVIRDefects int             `json:"dvirDefects"`
}

// WorkOrderSummary aggregates work orders for the analytics view.
type WorkOrderSummary struct {
	Total              int               `json:"total"`
	TotalCost          decimal.Decimal   `json:"totalCost"`
	AverageCost        decimal.Decimal   `json:"averageCost"`
	DVIRDefects        int               `json:"dvirDefects"`
	AverageDaysToClose float64           `json:"averageDaysToClose"`
	ByStatus           []WorkOrderBucket `json:"byStatus"`
	ByVehicle          []WorkOrderBucket `json:"byVehicle"`
}
