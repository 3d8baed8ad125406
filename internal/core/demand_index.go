package core

import "strings"

// DemandEntry is one work order still waiting for the part of a purchase order line.
type DemandEntry struct {
	WorkOrderID      int    `json:"work_order_id"`
	WorkOrderCode    string `json:"work_order_code"`
	WorkOrderLabel   string `json:"work_order_label"`
	WorkOrderVersion int    `json:"work_order_version"`
	OutstandingNeed  int    `json:"outstanding_need"`
}

// DemandIndex maps a purchase order line id to the work orders waiting for its part,
// in the iteration order of the work order snapshot.
type DemandIndex map[int][]DemandEntry

// BuildDemandIndex computes, per purchase order line, the work orders whose pending
// order-backed pieces match that line. It has no side effects.
//
// Several matching pieces inside one work order are merged into a single entry
// whose need is their sum, because allocations are made per work order.
func BuildDemandIndex(workOrders []WorkOrder, lines []PurchaseOrderLine) DemandIndex {
	index := make(DemandIndex, len(lines))
	for _, line := range lines {
		entries := []DemandEntry{}
		for _, wo := range workOrders {
			matched := false
			need := 0
			for _, p := range wo.Pieces {
				if !PieceMatchesLine(p, line) {
					continue
				}
				matched = true
				need += p.Outstanding()
			}
			if !matched {
				continue
			}
			entries = append(entries, DemandEntry{
				WorkOrderID:      wo.ID,
				WorkOrderCode:    wo.Code,
				WorkOrderLabel:   wo.Label(),
				WorkOrderVersion: wo.Version,
				OutstandingNeed:  need,
			})
		}
		index[line.ID] = entries
	}
	return index
}

// PieceMatchesLine reports whether a piece is waiting for the part a line supplies.
// Only order-backed pieces still waiting for a delivery match, so pieces already
// in stock or fully received never show up as zero-need entries. A line created from a known shortage
// matches its linked piece only; otherwise the article ids must be equal, or the
// designations must be equal ignoring case.
func PieceMatchesLine(p PieceNeed, line PurchaseOrderLine) bool {
	if !p.Waiting() {
		return false
	}
	if line.LinkedPieceID != nil && *line.LinkedPieceID != "" {
		return p.ID == *line.LinkedPieceID
	}
	articleID := line.ResolvedArticleID()
	if articleID != nil && p.ArticleID != nil && *articleID == *p.ArticleID {
		return true
	}
	return designationsMatch(p.Designation, line.Designation)
}

func designationsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
