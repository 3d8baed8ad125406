package repl

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

// handleNewOrder runs an interactive purchase order creation session.
func handleNewOrder(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, op core.Operator, supplier string) {
	fmt.Printf("Creating purchase order for supplier: %s\n", supplier)
	fmt.Println("Enter order lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Println("Format per line: <quantity> <designation> [#reference]")
	fmt.Println("  Example: 6 Contacteur 25A #CT25")
	fmt.Println("  Example: 4 Galet de porte")

	var lines []app.PurchaseOrderLineRequest
	lineNum := 1
	for {
		fmt.Printf("  Line %d: ", lineNum)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.ToLower(raw) == "cancel" {
			fmt.Println("Order creation cancelled.")
			return
		}
		if strings.ToLower(raw) == "done" {
			break
		}
		if raw == "" {
			continue
		}

		line, err := parseOrderLine(raw)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		lines = append(lines, line)
		lineNum++
	}

	if len(lines) == 0 {
		fmt.Println("No lines entered. Order not created.")
		return
	}

	fmt.Print("Priority (basse/normale/haute/urgente) [normale]: ")
	priority, _ := reader.ReadString('\n')
	priority = strings.TrimSpace(strings.ToLower(priority))

	fmt.Print("Expected delivery (YYYY-MM-DD, optional): ")
	expected, _ := reader.ReadString('\n')

	fmt.Print("Notes (optional): ")
	notes, _ := reader.ReadString('\n')

	result, err := svc.CreatePurchaseOrder(ctx, op, app.CreatePurchaseOrderRequest{
		Supplier:             supplier,
		Priority:             core.Priority(priority),
		ExpectedDeliveryDate: strings.TrimSpace(expected),
		Notes:                strings.TrimSpace(notes),
		Lines:                lines,
	})
	if err != nil {
		fmt.Printf("Error creating order: %v\n", err)
		return
	}

	fmt.Printf("\nOrder %s created (ID: %d, status %s)\n", result.Order.Code, result.Order.ID, result.Order.Status)
	printOrderDetail(result.Order)
	fmt.Printf("Use '/advance %d' to move it through the workflow.\n", result.Order.ID)
}

// parseOrderLine reads "<quantity> <designation> [#reference]".
func parseOrderLine(raw string) (app.PurchaseOrderLineRequest, error) {
	qtyText, rest, ok := strings.Cut(raw, " ")
	if !ok {
		return app.PurchaseOrderLineRequest{}, fmt.Errorf("invalid format, use: <quantity> <designation> [#reference]")
	}
	qty, err := strconv.Atoi(qtyText)
	if err != nil || qty <= 0 {
		return app.PurchaseOrderLineRequest{}, fmt.Errorf("invalid quantity %q", qtyText)
	}
	var line app.PurchaseOrderLineRequest
	line.Quantity = qty
	if i := strings.LastIndex(rest, "#"); i >= 0 {
		line.Reference = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	line.Designation = strings.TrimSpace(rest)
	if line.Designation == "" {
		return app.PurchaseOrderLineRequest{}, fmt.Errorf("designation is required")
	}
	return line, nil
}
