// seed loads a small demo data set: one storekeeper, a few catalog articles,
// work orders waiting for parts and a purchase order sent to the supplier.
// It refuses to run on a database that already holds purchase orders.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fieldservice/internal/config"
	"fieldservice/internal/core"
	"fieldservice/internal/db"
)

var storekeeperID = uuid.MustParse("6f1c2a3e-9d4b-4e8a-a1b2-c3d4e5f60718")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	var orders int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM purchase_orders").Scan(&orders); err != nil {
		log.Fatalf("Failed to inspect database (have migrations run?): %v", err)
	}
	if orders > 0 {
		log.Fatalf("Database already holds %d purchase orders, refusing to seed.", orders)
	}

	log.Println("Restoring storekeeper...")
	_, err = pool.Exec(ctx, `
		INSERT INTO technicians (id, first_name, last_name, role)
		VALUES ($1, 'Camille', 'Martin', 'magasinier')
		ON CONFLICT (id) DO UPDATE
		  SET first_name = EXCLUDED.first_name,
		      last_name = EXCLUDED.last_name,
		      is_active = true`,
		storekeeperID,
	)
	if err != nil {
		log.Fatalf("Failed to restore storekeeper: %v", err)
	}
	tech, err := core.NewOperatorService(pool).GetByID(ctx, storekeeperID)
	if err != nil {
		log.Fatalf("Failed to load storekeeper: %v", err)
	}
	op := tech.Operator()

	log.Println("Creating catalog articles...")
	stock := core.NewStockService(pool)
	contactor, err := stock.CreateArticle(ctx, core.StockArticleInput{
		Reference: "CT25", Designation: "Contacteur 25A", QuantityInStock: 1,
		AlertThreshold: 3, CriticalThreshold: 1, UnitPrice: decimal.RequireFromString("42.50"), Location: "A1-03",
	})
	if err != nil {
		log.Fatalf("Failed to create article: %v", err)
	}
	if _, err := stock.CreateArticle(ctx, core.StockArticleInput{
		Reference: "BP-LED", Designation: "Bouton palier LED", QuantityInStock: 12,
		AlertThreshold: 5, CriticalThreshold: 2, UnitPrice: decimal.RequireFromString("18.90"), Location: "B2-11",
	}); err != nil {
		log.Fatalf("Failed to create article: %v", err)
	}

	log.Println("Creating work orders awaiting parts...")
	workOrders := core.NewWorkOrderService(pool)
	seedWorkOrders := []core.WorkOrderInput{
		{
			Title:   "Remplacement contacteur moteur",
			DueDate: "2026-03-10",
			Pieces: []core.PieceNeedInput{
				{ArticleID: &contactor.ID, Designation: "Contacteur 25A", Reference: "CT25", Quantity: 2, Source: core.SourceOrderBacked},
			},
		},
		{
			ElevatorAddress: "12 rue des Lilas",
			DueDate:         "2026-03-20",
			Pieces: []core.PieceNeedInput{
				{Designation: "Galet de porte", Quantity: 4, Source: core.SourceOrderBacked},
				{Designation: "Bouton palier LED", Quantity: 1, Source: core.SourceWarehouseStock},
			},
		},
	}
	for _, in := range seedWorkOrders {
		wo, err := workOrders.CreateWorkOrder(ctx, op, in)
		if err != nil {
			log.Fatalf("Failed to create work order: %v", err)
		}
		log.Printf("  %s %s", wo.Code, wo.Label())
	}

	log.Println("Creating purchase order...")
	purchaseOrders := core.NewPurchaseOrderService(pool)
	po, err := purchaseOrders.CreatePO(ctx, op, core.PurchaseOrderInput{
		Supplier:          "Schindler Pièces",
		SupplierReference: "SP-7781",
		Priority:          core.PriorityHigh,
		Lines: []core.PurchaseOrderLineInput{
			{ArticleID: &contactor.ID, Designation: "Contacteur 25A", Reference: "CT25", Quantity: 6},
			{Designation: "Galet de porte", Quantity: 4},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create purchase order: %v", err)
	}
	for po.Status != core.POStatusOrdered {
		if po, err = purchaseOrders.AdvanceStatus(ctx, op, po.ID); err != nil {
			log.Fatalf("Failed to advance purchase order: %v", err)
		}
	}
	log.Printf("  %s is %s", po.Code, po.Status)

	log.Println("Seed complete.")
}
