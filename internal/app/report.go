package app

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"fieldservice/internal/core"
)

const (
	reportLinesSheet  = "Lignes"
	reportDemandSheet = "Travaux en attente"
)

// renderReceptionReport writes the order's lines and, per line, the work orders
// still waiting for its part. The workbook is the paper sheet used at the dock.
func renderReceptionReport(po *core.PurchaseOrder, index core.DemandIndex, at time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportLinesSheet); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if _, err := f.NewSheet(reportDemandSheet); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	header := [][]any{
		{"Commande", po.Code},
		{"Fournisseur", po.Supplier},
		{"Statut", string(po.Status)},
		{"Édité le", at.Format("2006-01-02 15:04")},
	}
	row := 1
	for _, h := range header {
		if err := setRow(f, reportLinesSheet, row, h); err != nil {
			return nil, err
		}
		row++
	}

	row++
	tableTop := row
	if err := setRow(f, reportLinesSheet, row, []any{"Ligne", "Désignation", "Référence", "Commandé", "Déjà reçu", "Reste", "Travaux en attente"}); err != nil {
		return nil, err
	}
	for _, l := range po.Lines {
		row++
		ref := ""
		if l.Reference != nil {
			ref = *l.Reference
		}
		if err := setRow(f, reportLinesSheet, row, []any{
			l.ID, l.Designation, ref, l.Quantity, l.ReceivedQuantity, l.Remaining(), len(index[l.ID]),
		}); err != nil {
			return nil, err
		}
	}
	if err := styleRow(f, reportLinesSheet, tableTop, 7, bold); err != nil {
		return nil, err
	}

	row = 1
	if err := setRow(f, reportDemandSheet, row, []any{"Ligne", "Désignation", "Travaux", "Libellé", "Besoin"}); err != nil {
		return nil, err
	}
	if err := styleRow(f, reportDemandSheet, row, 5, bold); err != nil {
		return nil, err
	}
	for _, l := range po.Lines {
		for _, d := range index[l.ID] {
			row++
			if err := setRow(f, reportDemandSheet, row, []any{
				l.ID, l.Designation, d.WorkOrderCode, d.WorkOrderLabel, d.OutstandingNeed,
			}); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("report: row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return f.SetCellStyle(sheet, first, last, style)
}
