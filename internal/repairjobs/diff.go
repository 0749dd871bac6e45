package repairjobs

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/repairdesk-backend/internal/inventory"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// LineItem is one requested product line.
type LineItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity" validate:"lte=100000"`
}

// Plan is the reconciliation between a job's current items and the desired
// ones. Quantities are grouped by product id.
type Plan struct {
	// Releases holds products only present in the current items, with their full quantity.
	Releases map[int64]int
	// Adjustments holds products present on both sides, as incoming minus current.
	Adjustments map[int64]int
	// Additions holds products only present in the incoming items.
	Additions map[int64]int
	// Items is the replacement item collection, one row per incoming line.
	Items []models.RepairJobItem
}

// Batch converts the plan into signed ledger deltas. Positive demand becomes a
// reservation (negative stock delta).
func (p Plan) Batch() inventory.Batch {
	batch := inventory.Batch{}
	for id, qty := range p.Releases {
		batch.Release(id, qty)
	}
	for id, delta := range p.Adjustments {
		if delta > 0 {
			batch.Reserve(id, delta)
		} else {
			batch.Release(id, -delta)
		}
	}
	for id, qty := range p.Additions {
		batch.Reserve(id, qty)
	}
	return batch
}

// FilterLineItems drops lines with a non-positive product id or quantity and
// fails when nothing is left.
func FilterLineItems(items []LineItem) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID > 0 && item.Quantity > 0 {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Add at least one product line item.").
			WithReason(pkgerrors.ReasonEmptyLineItems)
	}
	return out, nil
}

// ProductIDs returns the distinct product ids referenced by items, ascending.
func ProductIDs(items []LineItem) []int64 {
	grouped := groupLineItems(items)
	ids := make([]int64, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Diff reconciles current items against filtered incoming lines. prices holds
// the current catalog price of every incoming product; carried products keep
// the unit cost of their first current row.
func Diff(current []models.RepairJobItem, incoming []LineItem, prices map[int64]decimal.Decimal) (Plan, error) {
	oldQty := make(map[int64]int, len(current))
	oldCost := make(map[int64]decimal.Decimal, len(current))
	for _, item := range current {
		oldQty[item.ProductID] += item.Quantity
		if _, ok := oldCost[item.ProductID]; !ok {
			oldCost[item.ProductID] = item.UnitCost
		}
	}
	newQty := groupLineItems(incoming)

	plan := Plan{
		Releases:    map[int64]int{},
		Adjustments: map[int64]int{},
		Additions:   map[int64]int{},
		Items:       make([]models.RepairJobItem, 0, len(incoming)),
	}
	for id, qty := range oldQty {
		if _, kept := newQty[id]; !kept {
			plan.Releases[id] = qty
		}
	}
	for id, qty := range newQty {
		old, existed := oldQty[id]
		switch {
		case !existed:
			plan.Additions[id] = qty
		case qty != old:
			plan.Adjustments[id] = qty - old
		}
	}

	for _, line := range incoming {
		cost, carried := oldCost[line.ProductID]
		if !carried {
			price, ok := prices[line.ProductID]
			if !ok {
				return Plan{}, unknownProduct(line.ProductID)
			}
			cost = price
		}
		plan.Items = append(plan.Items, models.RepairJobItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  cost,
		})
	}
	return plan, nil
}

func groupLineItems(items []LineItem) map[int64]int {
	grouped := make(map[int64]int, len(items))
	for _, item := range items {
		grouped[item.ProductID] += item.Quantity
	}
	return grouped
}

func unknownProduct(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product %d does not exist or is not accessible.", id)).
		WithReason(pkgerrors.ReasonUnknownProduct).
		WithDetails(map[string]any{"product_id": id})
}
