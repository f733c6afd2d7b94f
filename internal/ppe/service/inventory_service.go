package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
)

// InventoryService owns every stock mutation outside the issuance path:
// purchases, administrative corrections, and the master item records.
type InventoryService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewInventoryService(repos *repository.Repositories, logger *zap.Logger) *InventoryService {
	return &InventoryService{repos: repos, logger: logger}
}

func (s *InventoryService) Get(ctx context.Context, id string) (*entity.PpeMaster, error) {
	item, err := s.repos.Master.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load item", err)
	}
	return item, nil
}

func (s *InventoryService) List(ctx context.Context, activeOnly bool) ([]entity.PpeMaster, error) {
	items, err := s.repos.Master.List(ctx, activeOnly)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	return items, nil
}

// Alerts returns active items at or below minimum stock.
func (s *InventoryService) Alerts(ctx context.Context) ([]entity.PpeMaster, error) {
	items, err := s.repos.Master.ListLowStock(ctx)
	if err != nil {
		return nil, storeErr("list low stock", err)
	}
	return items, nil
}

// AddStockInput 入库参数
type AddStockInput struct {
	PpeID     string          `json:"ppe_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Note      string          `json:"note"`
}

// AddStock records a purchase: stock goes up and an immutable purchase row
// is appended with total_cost = quantity * unit_price.
func (s *InventoryService) AddStock(ctx context.Context, in AddStockInput, actorID string) (*entity.PpePurchase, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQty
	}
	if in.UnitPrice.IsNegative() {
		return nil, &ValidationError{Field: "unit_price", Message: "unit price cannot be negative"}
	}
	if _, err := s.repos.Master.Get(ctx, in.PpeID); err != nil {
		return nil, storeErr("load item", err)
	}

	if err := s.repos.Master.AddStock(ctx, in.PpeID, in.Quantity); err != nil {
		return nil, storeErr("add stock", err)
	}

	purchase := &entity.PpePurchase{
		ID:          uuid.New().String(),
		PpeID:       in.PpeID,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TotalCost:   in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
		PurchasedBy: actorID,
		PurchasedAt: time.Now(),
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		purchase.Note = &note
	}
	if err := s.repos.Movement.AppendPurchase(ctx, purchase); err != nil {
		return nil, storeErr("append purchase", err)
	}
	return purchase, nil
}

// CorrectStock overwrites stock and price directly with no ledger entry.
// Deliberate escape hatch for reconciling physical counts; the returned flag
// tells the caller a manual audit record is expected.
func (s *InventoryService) CorrectStock(ctx context.Context, itemID string, newQty int, newPrice decimal.Decimal, actorID string) (auditRequired bool, err error) {
	if newQty < 0 {
		return false, ErrInvalidQty
	}
	if newPrice.IsNegative() {
		return false, &ValidationError{Field: "unit_price", Message: "unit price cannot be negative"}
	}
	if err := s.repos.Master.OverwriteStock(ctx, itemID, newQty, newPrice); err != nil {
		return false, storeErr("overwrite stock", err)
	}
	s.logger.Warn("stock corrected without ledger entry",
		zap.String("ppe_id", itemID),
		zap.Int("new_quantity", newQty),
		zap.String("actor_id", actorID),
	)
	return true, nil
}

// Purchases returns recent purchase history, optionally for one item.
func (s *InventoryService) Purchases(ctx context.Context, ppeID string, limit int) ([]entity.PpePurchase, error) {
	items, err := s.repos.Movement.ListPurchases(ctx, ppeID, limit)
	if err != nil {
		return nil, storeErr("list purchases", err)
	}
	return items, nil
}

// CreateItemInput 新建品项参数
type CreateItemInput struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	MinimumStock int             `json:"minimum_stock"`
}

func (s *InventoryService) CreateItem(ctx context.Context, in CreateItemInput) (*entity.PpeMaster, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := &entity.PpeMaster{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Category:     in.Category,
		Unit:         unit,
		UnitPrice:    in.UnitPrice,
		MinimumStock: in.MinimumStock,
		Active:       true,
	}
	if err := s.repos.Master.Create(ctx, item); err != nil {
		return nil, storeErr("create item", err)
	}
	return item, nil
}

// UpdateItemInput 更新品项参数 — nil fields are left unchanged.
type UpdateItemInput struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Unit         *string          `json:"unit"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	MinimumStock *int             `json:"minimum_stock"`
	Active       *bool            `json:"active"`
}

func (s *InventoryService) UpdateItem(ctx context.Context, id string, in UpdateItemInput) (*entity.PpeMaster, error) {
	item, err := s.repos.Master.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load item", err)
	}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Unit != nil {
		item.Unit = *in.Unit
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: "unit_price", Message: "unit price cannot be negative"}
		}
		item.UnitPrice = *in.UnitPrice
	}
	if in.MinimumStock != nil {
		item.MinimumStock = *in.MinimumStock
	}
	if in.Active != nil {
		item.Active = *in.Active
	}
	if err := s.repos.Master.Save(ctx, item); err != nil {
		return nil, storeErr("save item", err)
	}
	return item, nil
}
