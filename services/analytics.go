package services

import (
	"context"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"fleetdesk/backend/models"
)

// ListWorkOrders returns the organization's work orders opened within r, or all of them when r is nil.
func ListWorkOrders(ctx context.Context, orgID string, r *models.DateRange) ([]models.WorkOrder, error) {
	const op = "list work orders"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, organization_id, vehicle_id, title, status, labor_cost, parts_cost, dvir_defects, opened_at, completed_at
		FROM work_orders
		WHERE organization_id = ?`
	args := []any{orgID}
	if r != nil {
		query += ` AND opened_at >= ? AND opened_at < ?`
		args = append(args, r.Start, r.End.AddDate(0, 0, 1))
	}
	query += ` ORDER BY opened_at`

	orders := []models.WorkOrder{}
	if err := conn.SelectContext(ctx, &orders, conn.Rebind(query), args...); err != nil {
		return nil, persistenceError(op, err)
	}
	return orders, nil
}

// WorkOrderAnalytics summarizes the work orders opened within r.
func WorkOrderAnalytics(ctx context.Context, orgID string, r *models.DateRange) (models.WorkOrderSummary, error) {
	orders, err := ListWorkOrders(ctx, orgID, r)
	if err != nil {
		return models.WorkOrderSummary{}, err
	}
	return SummarizeWorkOrders(orders), nil
}

// SummarizeWorkOrders aggregates costs and DVIR defects overall, by status and
// by vehicle. Vehicles are ordered by total cost, highest first.
func SummarizeWorkOrders(orders []models.WorkOrder) models.WorkOrderSummary {
	s := models.WorkOrderSummary{
		TotalCost:   decimal.Zero,
		AverageCost: decimal.Zero,
		ByStatus:    []models.WorkOrderBucket{},
		ByVehicle:   []models.WorkOrderBucket{},
	}
	byStatus := map[string]*models.WorkOrderBucket{}
	byVehicle := map[string]*models.WorkOrderBucket{}
	add := func(buckets map[string]*models.WorkOrderBucket, key string, w models.WorkOrder) {
		b, ok := buckets[key]
		if !ok {
			b = &models.WorkOrderBucket{Key: key, TotalCost: decimal.Zero}
			buckets[key] = b
		}
		b.Count++
		b.TotalCost = b.TotalCost.Add(w.TotalCost())
		b.DVIRDefects += w.DVIRDefects
	}

	var closedDays float64
	closed := 0
	for _, w := range orders {
		s.Total++
		s.TotalCost = s.TotalCost.Add(w.TotalCost())
		s.DVIRDefects += w.DVIRDefects
		add(byStatus, string(w.Status), w)
		add(byVehicle, w.VehicleID, w)
		if w.CompletedAt != nil && !w.CompletedAt.Before(w.OpenedAt) {
			closedDays += w.CompletedAt.Sub(w.OpenedAt).Hours() / 24
			closed++
		}
	}

	if s.Total > 0 {
		s.AverageCost = s.TotalCost.DivRound(decimal.NewFromInt(int64(s.Total)), 2)
	}
	if closed > 0 {
		s.AverageDaysToClose = math.Round(closedDays/float64(closed)*10) / 10
	}

	for _, b := range byStatus {
		s.ByStatus = append(s.ByStatus, *b)
	}
	sort.Slice(s.ByStatus, func(i, j int) bool { return s.ByStatus[i].Key < s.ByStatus[j].Key })

	for _, b := range byVehicle {
		s.ByVehicle = append(s.ByVehicle, *b)
	}
	sort.Slice(s.ByVehicle, func(i, j int) bool {
		if c := s.ByVehicle[i].TotalCost.Cmp(s.ByVehicle[j].TotalCost); c != 0 {
			return c > 0
		}
		return s.ByVehicle[i].Key < s.ByVehicle[j].Key
	})
	return s
}
