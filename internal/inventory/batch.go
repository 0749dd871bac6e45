package inventory

import (
	"fmt"
	"sort"
)

// Batch maps product ids to signed stock deltas. A negative delta reserves
// stock, a positive delta releases it back.
type Batch map[int64]int

// Reserve adds a reservation of qty units for productID.
func (b Batch) Reserve(productID int64, qty int) {
	b[productID] -= qty
}

// Release adds a release of qty units for productID.
func (b Batch) Release(productID int64, qty int) {
	b[productID] += qty
}

// ProductIDs returns the ids with a non-zero delta in ascending order. Rows are
// always locked in this order.
func (b Batch) ProductIDs() []int64 {
	ids := make([]int64, 0, len(b))
	for id, delta := range b {
		if delta != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Empty reports whether applying the batch would change nothing.
func (b Batch) Empty() bool {
	return len(b.ProductIDs()) == 0
}

// Shortage describes one reservation line that stock cannot cover.
type Shortage struct {
	ProductID int64 `json:"product_id"`
	Have      int   `json:"have"`
	Need      int   `json:"need"`
}

func (s Shortage) Error() string {
	return fmt.Sprintf("product %d: have %d, need %d", s.ProductID, s.Have, s.Need)
}
