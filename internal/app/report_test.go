package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"fieldservice/internal/core"
)

func TestRenderReceptionReport(t *testing.T) {
	ref := "CT25"
	po := &core.PurchaseOrder{ID: 4, Code: "CMD-0004", Supplier: "Schindler Pièces", Status: core.POStatusOrdered,
		Lines: []core.PurchaseOrderLine{
			{ID: 1, Designation: "Contacteur 25A", Reference: &ref, Quantity: 6, ReceivedQuantity: 2},
			{ID: 2, Designation: "Galet de porte", Quantity: 4},
		}}
	index := core.DemandIndex{
		1: {
			{WorkOrderID: 10, WorkOrderCode: "TRV-0010", WorkOrderLabel: "Remplacement contacteur", OutstandingNeed: 2},
			{WorkOrderID: 11, WorkOrderCode: "TRV-0011", WorkOrderLabel: "12 rue des Lilas", OutstandingNeed: 2},
		},
		2: {},
	}

	data, err := renderReceptionReport(po, index, time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("renderReceptionReport: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != reportLinesSheet || got[1] != reportDemandSheet {
		t.Fatalf("sheets = %v", got)
	}

	rows, err := f.GetRows(reportLinesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if rows[0][1] != "CMD-0004" || rows[3][1] != "2026-03-02 08:30" {
		t.Errorf("header rows = %v", rows[:4])
	}
	// Header block, a blank row, the table header, then one row per line.
	line := rows[6]
	want := []string{"1", "Contacteur 25A", "CT25", "6", "2", "4", "2"}
	for i, w := range want {
		if line[i] != w {
			t.Errorf("line row col %d = %q, want %q", i, line[i], w)
		}
	}

	demand, err := f.GetRows(reportDemandSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(demand) != 3 || demand[2][2] != "TRV-0011" || demand[2][3] != "12 rue des Lilas" {
		t.Errorf("demand rows = %v", demand)
	}
}
