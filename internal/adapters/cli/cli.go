package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, op core.Operator, args []string) {
	switch args[0] {
	case "orders", "o":
		filter := core.PurchaseOrderFilter{}
		if len(args) > 1 {
			filter.Status = core.POStatus(strings.ToLower(args[1]))
			if !filter.Status.Valid() {
				log.Fatalf("Unknown status: %s", args[1])
			}
		}
		result, err := svc.ListPurchaseOrders(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		printOrders(result)

	case "awaiting", "a":
		result, err := svc.ListAwaitingParts(ctx)
		if err != nil {
			log.Fatalf("Failed to list work orders: %v", err)
		}
		printJSON(result)

	case "stock", "s":
		result, err := svc.GetStockLevels(ctx)
		if err != nil {
			log.Fatalf("Failed to get stock levels: %v", err)
		}
		printJSON(result)

	case "receive", "r":
		if len(args) < 2 {
			log.Fatal("Usage: app receive <order-id> < edits.json")
		}
		poID, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid order id: %s", args[1])
		}
		edits, err := readEdits(os.Stdin)
		if err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		result, err := receive(ctx, svc, op, poID, edits)
		if result != nil {
			printJSON(result)
		}
		if err != nil {
			log.Fatalf("Reception failed: %v", err)
		}

	default:
		log.Fatalf("Unknown command: %s\nAvailable: orders, awaiting, stock, receive, token", args[0])
	}
}

// readEdits decodes a JSON array of edits. An empty input means no edits.
func readEdits(r io.Reader) ([]core.Edit, error) {
	var edits []core.Edit
	if err := json.NewDecoder(r).Decode(&edits); err != nil && err != io.EOF {
		return nil, err
	}
	return edits, nil
}

// receive opens a session, applies the edits in order and commits. Any rejected
// edit cancels the session so nothing is written.
func receive(ctx context.Context, svc app.ApplicationService, op core.Operator, poID int, edits []core.Edit) (*app.ReceptionCommitResult, error) {
	sess, err := svc.OpenReception(ctx, op, poID)
	if err != nil {
		return nil, err
	}
	for i, e := range edits {
		if _, err := svc.EditReception(ctx, sess.Token, e); err != nil {
			_ = svc.CancelReception(ctx, sess.Token)
			return nil, fmt.Errorf("edit %d (%s line %d): %w", i+1, e.Kind, e.LineID, err)
		}
	}
	return svc.CommitReception(ctx, op, sess.Token)
}

func printOrders(result *app.PurchaseOrdersResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 66))
	fmt.Printf("  %-5s %-10s %-24s %-12s %9s\n", "ID", "CODE", "SUPPLIER", "STATUS", "RECEIVED")
	fmt.Println(strings.Repeat("-", 66))
	for _, po := range result.Orders {
		fmt.Printf("  %-5d %-10s %-24s %-12s %4d/%-4d\n",
			po.ID, po.Code, po.Supplier, po.Status, po.TotalReceived(), po.TotalOrdered())
	}
	fmt.Println(strings.Repeat("=", 66))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
