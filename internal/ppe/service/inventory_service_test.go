package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
	"github.com/plantsafe/ppeflow/internal/ppe/service"
	"github.com/plantsafe/ppeflow/internal/ppe/testutil"
)

func TestAddStockWritesPurchaseLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewInventoryService(repos, zap.NewNop())
	ctx := context.Background()

	testutil.SeedItem(t, db, "ppe-1", "Safety Gloves", 10, "12.50")

	purchase, err := svc.AddStock(ctx, service.AddStockInput{
		PpeID:     "ppe-1",
		Quantity:  40,
		UnitPrice: decimal.RequireFromString("11.00"),
		Note:      "quarterly restock",
	}, "hse-1")
	if err != nil {
		t.Fatalf("AddStock failed: %v", err)
	}

	item, _ := repos.Master.Get(ctx, "ppe-1")
	if item.StockQuantity != 50 {
		t.Errorf("stock = %d, want 50", item.StockQuantity)
	}
	want := decimal.RequireFromString("440.00")
	if !purchase.TotalCost.Equal(want) {
		t.Errorf("purchase total = %s, want %s", purchase.TotalCost, want)
	}
	if purchase.Note == nil || *purchase.Note != "quarterly restock" {
		t.Errorf("purchase note not stored")
	}

	rows, err := svc.Purchases(ctx, "ppe-1", 10)
	if err != nil {
		t.Fatalf("Purchases failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 purchase row, got %d", len(rows))
	}
}

func TestAddStockRejectsNonPositiveQuantity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewInventoryService(repository.NewRepositories(db), zap.NewNop())
	testutil.SeedItem(t, db, "ppe-1", "Safety Gloves", 10, "12.50")

	for _, qty := range []int{0, -3} {
		_, err := svc.AddStock(context.Background(), service.AddStockInput{
			PpeID: "ppe-1", Quantity: qty,
		}, "hse-1")
		if !errors.Is(err, service.ErrInvalidQty) {
			t.Errorf("quantity %d: expected ErrInvalidQty, got %v", qty, err)
		}
	}
}

func TestCorrectStockOverwritesWithoutLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewInventoryService(repos, zap.NewNop())
	ctx := context.Background()

	testutil.SeedItem(t, db, "ppe-1", "Safety Gloves", 10, "12.50")

	auditRequired, err := svc.CorrectStock(ctx, "ppe-1", 37, decimal.RequireFromString("13.00"), "hse-1")
	if err != nil {
		t.Fatalf("CorrectStock failed: %v", err)
	}
	if !auditRequired {
		t.Errorf("corrections must flag an audit record")
	}

	item, _ := repos.Master.Get(ctx, "ppe-1")
	if item.StockQuantity != 37 {
		t.Errorf("stock = %d, want 37", item.StockQuantity)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("13.00")) {
		t.Errorf("price = %s, want 13.00", item.UnitPrice)
	}

	var count int64
	db.Model(&entity.PpePurchase{}).Count(&count)
	if count != 0 {
		t.Errorf("corrections must not write purchase rows, found %d", count)
	}

	if _, err := svc.CorrectStock(ctx, "ppe-1", -1, decimal.Zero, "hse-1"); !errors.Is(err, service.ErrInvalidQty) {
		t.Errorf("negative stock correction must fail, got %v", err)
	}
}

func TestAlertsListsLowStockItems(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewInventoryService(repository.NewRepositories(db), zap.NewNop())

	// SeedItem uses minimum_stock 5.
	testutil.SeedItem(t, db, "ppe-low", "Safety Gloves", 4, "12.50")
	testutil.SeedItem(t, db, "ppe-edge", "Ear Plugs", 5, "2.00")
	testutil.SeedItem(t, db, "ppe-ok", "Safety Helmet", 30, "80.00")

	items, err := svc.Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}
	got := map[string]bool{}
	for _, it := range items {
		got[it.ID] = true
	}
	if !got["ppe-low"] || !got["ppe-edge"] {
		t.Errorf("items at or below minimum missing from alerts: %v", got)
	}
	if got["ppe-ok"] {
		t.Errorf("well-stocked item reported as low")
	}
}

func TestDeductStockReturnsPriorLevel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	testutil.SeedItem(t, db, "ppe-1", "Safety Gloves", 10, "12.50")

	before, err := repos.Master.DeductStock(ctx, "ppe-1", 3)
	if err != nil {
		t.Fatalf("DeductStock failed: %v", err)
	}
	if before != 10 {
		t.Errorf("pre-deduction stock = %d, want 10", before)
	}

	before, err = repos.Master.DeductStock(ctx, "ppe-1", 7)
	if err != nil {
		t.Fatalf("second DeductStock failed: %v", err)
	}
	if before != 7 {
		t.Errorf("pre-deduction stock = %d, want 7", before)
	}

	// Stock is exhausted: the guarded update touches nothing.
	if _, err := repos.Master.DeductStock(ctx, "ppe-1", 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deduct from empty stock should miss the guard, got %v", err)
	}
	item, _ := repos.Master.Get(ctx, "ppe-1")
	if item.StockQuantity != 0 {
		t.Errorf("stock = %d, want 0", item.StockQuantity)
	}
}
