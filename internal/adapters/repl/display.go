package repl

import (
	"fmt"
	"strings"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

func printOrders(result *app.PurchaseOrdersResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-58s\n", "PURCHASE ORDERS")
	fmt.Println(strings.Repeat("=", 78))
	if len(result.Orders) == 0 {
		fmt.Println("  No purchase orders found.")
		fmt.Println(strings.Repeat("=", 78))
		return
	}
	fmt.Printf("  %-5s %-10s %-26s %-12s %-8s %9s\n", "ID", "CODE", "SUPPLIER", "STATUS", "PRIORITY", "RECEIVED")
	fmt.Println(strings.Repeat("-", 78))
	for _, po := range result.Orders {
		archived := ""
		if po.Archived {
			archived = " (archived)"
		}
		fmt.Printf("  %-5d %-10s %-26s %-12s %-8s %4d/%-4d%s\n",
			po.ID, po.Code, truncate(po.Supplier, 26), po.Status, po.Priority,
			po.TotalReceived(), po.TotalOrdered(), archived)
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printOrderDetail(po *core.PurchaseOrder) {
	fmt.Printf("\n%s  %s  [%s, %s]\n", po.Code, po.Supplier, po.Status, po.Priority)
	if po.SupplierReference != nil {
		fmt.Printf("Supplier ref: %s\n", *po.SupplierReference)
	}
	fmt.Printf("  %-5s %-32s %-12s %8s %8s\n", "LINE", "DESIGNATION", "REFERENCE", "ORDERED", "RECEIVED")
	fmt.Println("  " + strings.Repeat("-", 70))
	for _, l := range po.Lines {
		ref := ""
		if l.Reference != nil {
			ref = *l.Reference
		}
		fmt.Printf("  %-5d %-32s %-12s %8d %8d\n", l.ID, truncate(l.Designation, 32), truncate(ref, 12), l.Quantity, l.ReceivedQuantity)
	}
}

func printSession(sess *app.ReceptionSessionResult) {
	fmt.Printf("\nReception of %s (%s), opened by %s, expires %s\n",
		sess.OrderCode, sess.Supplier, sess.OpenedBy.Name, sess.ExpiresAt.Local().Format("15:04"))
	for _, l := range sess.Lines {
		fmt.Printf("\n  Line %d  %s\n", l.LineID, l.Designation)
		fmt.Printf("    ordered %d, already received %d, receiving %d, to stock %d\n",
			l.OrderedQuantity, l.AlreadyReceived, l.ReceivedQuantity, l.Residual)
		if len(l.Entries) == 0 {
			fmt.Println("    no work order waiting for this part")
			continue
		}
		for _, e := range l.Entries {
			fmt.Printf("    -> [%d] %-10s %-30s need %3d  allocated %3d\n",
				e.WorkOrderID, e.WorkOrderCode, truncate(e.WorkOrderLabel, 30), e.OutstandingNeed, e.Quantity)
		}
	}
	fmt.Printf("\n  Total receiving: %d\n", sess.TotalReceived)
}

func printCommit(res *app.ReceptionCommitResult) {
	r := res.Reception
	fmt.Printf("\nReception of %s: %s (%d/%d lines committed)\n", r.OrderCode, strings.ToUpper(string(r.Status)), r.Processed, len(r.Outcomes))
	for _, o := range r.Outcomes {
		switch o.Status {
		case core.LineCommitted:
			fmt.Printf("  [ok]   line %d %s: %d received, %d to stock, %d work order(s)\n",
				o.LineID, o.Designation, o.ReceivedQuantity, o.StockResidual, len(o.Allocations))
		case core.LineFailed:
			fmt.Printf("  [fail] line %d %s: %s\n", o.LineID, o.Designation, o.Error)
		default:
			fmt.Printf("  [skip] line %d %s\n", o.LineID, o.Designation)
		}
	}
	if ids := r.Retryable(); len(ids) > 0 {
		fmt.Printf("Lines %v were not written. Reopen the reception to retry them.\n", ids)
	}
	if res.Order != nil {
		fmt.Printf("Order %s is now %s.\n", res.Order.Code, res.Order.Status)
	}
}

func printWorkOrders(result *app.WorkOrdersResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-58s\n", "WORK ORDERS AWAITING PARTS")
	fmt.Println(strings.Repeat("=", 78))
	if len(result.WorkOrders) == 0 {
		fmt.Println("  Nothing is waiting for parts.")
		fmt.Println(strings.Repeat("=", 78))
		return
	}
	for _, wo := range result.WorkOrders {
		due := "-"
		if wo.DueDate != nil {
			due = *wo.DueDate
		}
		fmt.Printf("  %-10s %-40s due %s\n", wo.Code, truncate(wo.Label(), 40), due)
		for _, p := range wo.Pieces {
			if !p.Pending() || p.Outstanding() == 0 {
				continue
			}
			fmt.Printf("      %-36s %3d of %3d missing\n", truncate(p.Designation, 36), p.Outstanding(), p.Quantity)
		}
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printStockLevels(result *app.StockResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-58s\n", "STOCK LEVELS")
	fmt.Println(strings.Repeat("=", 78))
	if len(result.Levels) == 0 {
		fmt.Println("  No articles found.")
		fmt.Println(strings.Repeat("=", 78))
		return
	}
	fmt.Printf("  %-5s %-12s %-30s %6s %-9s %10s\n", "ID", "REFERENCE", "DESIGNATION", "QTY", "STATUS", "VALUE")
	fmt.Println(strings.Repeat("-", 78))
	for _, l := range result.Levels {
		fmt.Printf("  %-5d %-12s %-30s %6d %-9s %10s\n",
			l.ID, truncate(l.Reference, 12), truncate(l.Designation, 30), l.QuantityInStock, l.Status, l.Value.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printHelp() {
	fmt.Println(`
Orders
  /orders [status]                 list purchase orders
  /order <id>                      show an order and its lines
  /new-order <supplier>            create an order interactively
  /advance <id>                    move an order one step forward
  /awaiting                        work orders waiting for parts
  /stock                           stock levels

Reception
  /open <order-id>                 start receiving an order
  /show                            show the open reception
  /recv <line> <qty>               set the quantity arriving on a line
  /alloc <line> <wo-id> <qty>      give part of a line to a work order
  /max <line> <wo-id>              give a work order all it needs
  /tostock <line>                  send the whole line to stock
  /commit                          write the reception
  /cancel                          drop the reception

  /help, /exit`)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
