package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartd/internal/catalog"
	"github.com/angelmondragon/cartd/pkg/db/models"
	dbtypes "github.com/angelmondragon/cartd/pkg/db/types"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/money"
	"github.com/angelmondragon/cartd/pkg/promotion"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogReader interface {
	FindSkuByAttributes(ctx context.Context, productID string, attrs map[string]string) (string, bool, error)
	PriceSnapshot(ctx context.Context, productID, skuID string) (catalog.PriceSnapshot, bool, error)
}

// CouponPricer prices a coupon against a cart snapshot.
type CouponPricer interface {
	CouponDiscount(ctx context.Context, snapshot promotion.Snapshot, code string) (decimal.Decimal, error)
}

// Outcome names what a mutation did. No-op outcomes are results, not errors.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRemoved   Outcome = "removed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
)

// Result reports a row mutation. Item is nil when no row was touched.
type Result struct {
	Item     *models.CartItem
	Outcome  Outcome
	Quantity int
}

// SyncReport counts what SyncCustomerClientID did with each anonymous row.
type SyncReport struct {
	Moved  int `json:"moved"`
	Merged int `json:"merged"`
	Failed int `json:"failed"`
}

// ItemView is one owned row priced against the live catalog.
type ItemView struct {
	Item        models.CartItem
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Weight      decimal.Decimal
	GrossWeight decimal.Decimal
	Attributes  dbtypes.Attributes
}

// Service exposes the row-backed cart operations.
type Service interface {
	Add(ctx context.Context, scope Scope, productID, skuID string, qty int, attrs map[string]string) (Result, error)
	Remove(ctx context.Context, scope Scope, cartID uint64) (int, error)
	DeleteAll(ctx context.Context, scope Scope, cartIDs []uint64) (int, error)
	GetItem(ctx context.Context, scope Scope, cartID uint64) (ItemView, bool, error)
	SetItemQuantity(ctx context.Context, scope Scope, cartID uint64, qty int) (Result, error)
	UpdateItemAttributes(ctx context.Context, scope Scope, cartID uint64, attrs map[string]string) (Result, error)
	GetItems(ctx context.Context, scope Scope, clientID string) (*Collection, error)
	GetQuantity(ctx context.Context, scope Scope, clientID string) (int, error)
	GetStatistics(ctx context.Context, scope Scope, clientID string) (Statistics, error)
	SetCoupon(ctx context.Context, scope Scope, code string) error
	SetShippingAmount(ctx context.Context, scope Scope, amount decimal.Decimal) error
	Clear(ctx context.Context, scope Scope, clientID string) (int, error)
	SyncCustomerClientID(ctx context.Context, scope Scope, customerID, clientID string) (SyncReport, error)
	ClearCustomerClientID(ctx context.Context, customerID string) error
}

type service struct {
	repo       *ItemRepository
	tx         txRunner
	catalog    catalogReader
	promotions CouponPricer
	listeners  []Listener
}

// NewService builds a cart service backed by the provided stack. promotions may be
// nil, in which case coupons are rejected as a dependency failure.
func NewService(repo *ItemRepository, tx txRunner, catalog catalogReader, promotions CouponPricer, listeners ...Listener) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart item repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		catalog:    catalog,
		promotions: promotions,
		listeners:  listeners,
	}, nil
}

func (s *service) Add(ctx context.Context, scope Scope, productID, skuID string, qty int, attrs map[string]string) (Result, error) {
	productID = strings.TrimSpace(productID)
	skuID = strings.TrimSpace(skuID)
	if qty <= 0 {
		return Result{Outcome: OutcomeRejected}, nil
	}

	if skuID == "" {
		found, ok, err := s.catalog.FindSkuByAttributes(ctx, productID, attrs)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Outcome: OutcomeRejected}, nil
		}
		skuID = found
	}

	owner := scope.owner("")
	row, err := s.repo.FindOwnedBySku(ctx, owner, skuID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
	}
	if row != nil {
		row.Quantity += qty
		if err := s.repo.UpdateQuantity(ctx, row.ID, row.Quantity); err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart row")
		}
		s.notify(ctx, scope, EventRowUpdated, row)
		s.refresh(ctx, scope)
		return Result{Item: row, Outcome: OutcomeUpdated, Quantity: row.Quantity}, nil
	}

	snap, ok, err := s.catalog.PriceSnapshot(ctx, productID, skuID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeRejected}, nil
	}

	row = &models.CartItem{
		ProductID:   snap.ProductID,
		SkuID:       snap.SkuID,
		CategoryID:  snap.CategoryID,
		CustomerID:  scope.Identity.CustomerID(),
		ClientID:    scope.Identity.ClientID(),
		Price:       snap.Price,
		CartPrice:   snap.UnitPrice(),
		MarketPrice: snap.MarketPrice,
		Weight:      snap.Weight,
		Quantity:    qty,
		Attributes:  rowAttributes(snap, attrs),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart row")
	}
	s.notify(ctx, scope, EventRowCreated, row)
	s.refresh(ctx, scope)
	return Result{Item: row, Outcome: OutcomeCreated, Quantity: row.Quantity}, nil
}

func (s *service) Remove(ctx context.Context, scope Scope, cartID uint64) (int, error) {
	row, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
	}
	if row == nil || !scope.owns(row.CustomerID, row.ClientID) {
		return 0, nil
	}
	if err := s.repo.Delete(ctx, row.ID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart row")
	}
	s.refresh(ctx, scope)
	s.notify(ctx, scope, EventRowRemoved, row)
	return row.Quantity, nil
}

// DeleteAll removes the listed rows the scope owns and returns the quantity removed.
// Ids of rows that are missing or owned by someone else are skipped.
func (s *service) DeleteAll(ctx context.Context, scope Scope, cartIDs []uint64) (int, error) {
	if len(cartIDs) == 0 {
		return 0, nil
	}
	owner := scope.owner("")
	rows, err := s.repo.ListOwnedByIDs(ctx, owner, cartIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart rows")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if _, err := s.repo.DeleteOwned(ctx, owner, ids); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart rows")
	}

	removed := 0
	for i := range rows {
		removed += rows[i].Quantity
		s.notify(ctx, scope, EventRowRemoved, &rows[i])
	}
	s.refresh(ctx, scope)
	return removed, nil
}

// GetItem returns an owned row with its current catalog price. It reports false
// when the row is missing, owned by someone else, or its sku left the catalog.
func (s *service) GetItem(ctx context.Context, scope Scope, cartID uint64) (ItemView, bool, error) {
	row, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return ItemView{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
	}
	if row == nil || !scope.owns(row.CustomerID, row.ClientID) {
		return ItemView{}, false, nil
	}
	snap, ok, err := s.catalog.PriceSnapshot(ctx, row.ProductID, row.SkuID)
	if err != nil {
		return ItemView{}, false, err
	}
	if !ok {
		return ItemView{}, false, nil
	}

	unit := snap.UnitPrice()
	return ItemView{
		Item:        *row,
		UnitPrice:   unit,
		Subtotal:    money.Times(unit, row.Quantity),
		Weight:      snap.Weight,
		GrossWeight: money.Times(snap.Weight, row.Quantity),
		Attributes:  rowAttributes(snap, row.Attributes),
	}, true, nil
}

func (s *service) SetItemQuantity(ctx context.Context, scope Scope, cartID uint64, qty int) (Result, error) {
	if qty <= 0 {
		return Result{Outcome: OutcomeUnchanged}, nil
	}
	row, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
	}
	if row == nil || !scope.owns(row.CustomerID, row.ClientID) {
		return Result{Outcome: OutcomeUnchanged}, nil
	}
	if row.Quantity == qty {
		return Result{Item: row, Outcome: OutcomeUnchanged, Quantity: qty}, nil
	}

	if err := s.repo.UpdateQuantity(ctx, row.ID, qty); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart row")
	}
	row.Quantity = qty
	s.refresh(ctx, scope)
	s.notify(ctx, scope, EventRowUpdated, row)
	return Result{Item: row, Outcome: OutcomeUpdated, Quantity: qty}, nil
}

func (s *service) UpdateItemAttributes(ctx context.Context, scope Scope, cartID uint64, attrs map[string]string) (Result, error) {
	row, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
	}
	if row == nil || !scope.owns(row.CustomerID, row.ClientID) {
		return Result{Outcome: OutcomeUnchanged}, nil
	}

	skuID, ok, err := s.catalog.FindSkuByAttributes(ctx, row.ProductID, attrs)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Item: row, Outcome: OutcomeRejected, Quantity: row.Quantity}, nil
	}

	if skuID != row.SkuID {
		clash, err := s.repo.FindOwnedBySku(ctx, ownerOfRow(row), skuID)
		if err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart row")
		}
		if clash != nil && clash.ID != row.ID {
			return Result{Item: row, Outcome: OutcomeRejected, Quantity: row.Quantity}, nil
		}
	}

	snap, ok, err := s.catalog.PriceSnapshot(ctx, row.ProductID, skuID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Item: row, Outcome: OutcomeRejected, Quantity: row.Quantity}, nil
	}

	row.SkuID = snap.SkuID
	row.CategoryID = snap.CategoryID
	row.Price = snap.Price
	row.CartPrice = snap.UnitPrice()
	row.MarketPrice = snap.MarketPrice
	row.Weight = snap.Weight
	row.Attributes = rowAttributes(snap, attrs)
	if err := s.repo.Save(ctx, row); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart row")
	}
	s.refresh(ctx, scope)
	s.notify(ctx, scope, EventRowUpdated, row)
	return Result{Item: row, Outcome: OutcomeUpdated, Quantity: row.Quantity}, nil
}

func (s *service) GetItems(ctx context.Context, scope Scope, clientID string) (*Collection, error) {
	rows, err := s.repo.ListByOwner(ctx, scope.owner(clientID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart rows")
	}
	items := NewCollection(rows)

	if cached, ok := scope.Session.CachedQuantity(); ok && cached != items.Quantity() {
		scope.Session.ForgetQuantity()
		if code, _ := scope.Session.Coupon(); code != "" {
			s.repriceCoupon(ctx, scope, items, code)
		}
	}

	code, discount := scope.Session.Coupon()
	items.SetCoupon(code, discount)
	items.SetShippingAmount(scope.Session.Shipping())
	return items, nil
}

func (s *service) GetQuantity(ctx context.Context, scope Scope, clientID string) (int, error) {
	if qty, ok := scope.Session.CachedQuantity(); ok && clientID == "" {
		return qty, nil
	}
	items, err := s.GetItems(ctx, scope, clientID)
	if err != nil {
		return 0, err
	}
	qty := items.Quantity()
	if clientID == "" {
		scope.Session.RememberQuantity(qty)
	}
	return qty, nil
}

func (s *service) GetStatistics(ctx context.Context, scope Scope, clientID string) (Statistics, error) {
	items, err := s.GetItems(ctx, scope, clientID)
	if err != nil {
		return Statistics{}, err
	}
	return items.Statistics(), nil
}

func (s *service) SetCoupon(ctx context.Context, scope Scope, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		scope.Session.ClearCoupon()
		return nil
	}

	items, err := s.GetItems(ctx, scope, "")
	if err != nil {
		return err
	}
	amount, err := s.quoteCoupon(ctx, scope, items, code)
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			scope.Session.ClearCoupon()
		}
		return err
	}
	scope.Session.SetCoupon(code, amount)
	return nil
}

func (s *service) SetShippingAmount(ctx context.Context, scope Scope, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping amount must not be negative")
	}
	scope.Session.SetShipping(amount)
	return nil
}

// Clear removes every row of the owner. An empty clientID clears the caller's own
// cart; otherwise the rows tagged with clientID are removed.
func (s *service) Clear(ctx context.Context, scope Scope, clientID string) (int, error) {
	owner := scope.owner(clientID)
	rows, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart rows")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := s.repo.DeleteByOwner(ctx, owner); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart rows")
	}

	removed := 0
	for i := range rows {
		removed += rows[i].Quantity
		s.notify(ctx, scope, EventRowRemoved, &rows[i])
	}
	if clientID == "" {
		s.refresh(ctx, scope)
	}
	return removed, nil
}

func (s *service) SyncCustomerClientID(ctx context.Context, scope Scope, customerID, clientID string) (SyncReport, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return SyncReport{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if clientID == "" {
		clientID = scope.Identity.ClientID()
	}
	if clientID == "" {
		return SyncReport{}, nil
	}

	var report SyncReport
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.ListAnonymous(ctx, clientID)
		if err != nil {
			return err
		}
		for i := range rows {
			anon := rows[i]
			merged := false
			err := tx.Transaction(func(rowTx *gorm.DB) error {
				rowRepo := repo.WithTx(rowTx)
				existing, err := rowRepo.FindOwnedBySku(ctx, Owner{CustomerID: customerID}, anon.SkuID)
				if err != nil {
					return err
				}
				if existing != nil {
					existing.Quantity += anon.Quantity
					existing.ClientID = ""
					if err := rowRepo.Save(ctx, existing); err != nil {
						return err
					}
					merged = true
					return rowRepo.Delete(ctx, anon.ID)
				}
				anon.CustomerID = customerID
				anon.ClientID = ""
				return rowRepo.Save(ctx, &anon)
			})
			switch {
			case err != nil:
				report.Failed++
			case merged:
				report.Merged++
			default:
				report.Moved++
			}
		}
		return nil
	})
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sync customer cart")
	}

	if report.Moved+report.Merged > 0 {
		s.refresh(ctx, scope)
	}
	return report, nil
}

func (s *service) ClearCustomerClientID(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if _, err := s.repo.ClearClientIDForCustomer(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear customer client id")
	}
	return nil
}

// refresh drops the memoized quantity and brings the coupon in line with the cart:
// an empty cart loses its coupon, otherwise the coupon is priced again.
func (s *service) refresh(ctx context.Context, scope Scope) {
	if scope.Session == nil {
		return
	}
	scope.Session.ForgetQuantity()

	items, err := s.GetItems(ctx, scope, "")
	if err != nil {
		return
	}
	scope.Session.RememberQuantity(items.Quantity())
	if items.Quantity() == 0 {
		scope.Session.ClearCoupon()
		return
	}
	if code, _ := scope.Session.Coupon(); code != "" {
		s.repriceCoupon(ctx, scope, items, code)
	}
}

// repriceCoupon quotes code again. A rejected coupon is cleared; an unreachable
// oracle leaves the previous discount in place.
func (s *service) repriceCoupon(ctx context.Context, scope Scope, items *Collection, code string) {
	amount, err := s.quoteCoupon(ctx, scope, items, code)
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			scope.Session.ClearCoupon()
		}
		return
	}
	scope.Session.SetCoupon(code, amount)
}

func (s *service) quoteCoupon(ctx context.Context, scope Scope, items *Collection, code string) (decimal.Decimal, error) {
	if s.promotions == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "promotion service not configured")
	}
	return s.promotions.CouponDiscount(ctx, snapshotOf(scope, items), code)
}

func (s *service) notify(ctx context.Context, scope Scope, name EventName, row *models.CartItem) {
	dispatch(ctx, s.listeners, Event{
		Name:     name,
		ClientID: scope.Identity.ClientID(),
		SkuID:    row.SkuID,
		Quantity: row.Quantity,
	})
}

func snapshotOf(scope Scope, items *Collection) promotion.Snapshot {
	lines := make([]promotion.Line, 0, items.Len())
	for _, row := range items.Items() {
		lines = append(lines, promotion.Line{
			ProductID: row.ProductID,
			SkuID:     row.SkuID,
			Quantity:  row.Quantity,
			UnitPrice: row.CartPrice,
		})
	}
	return promotion.Snapshot{
		ClientID:   scope.Identity.ClientID(),
		CustomerID: scope.Identity.CustomerID(),
		Quantity:   items.Quantity(),
		Subtotal:   items.Subtotal(),
		Lines:      lines,
	}
}

func ownerOfRow(row *models.CartItem) Owner {
	if row.CustomerID != "" {
		return Owner{CustomerID: row.CustomerID}
	}
	return Owner{ClientID: row.ClientID, Guest: true}
}

func rowAttributes(snap catalog.PriceSnapshot, requested map[string]string) dbtypes.Attributes {
	if len(snap.Attributes) > 0 {
		return snap.Attributes.Normalize()
	}
	return dbtypes.Attributes(requested).Normalize()
}
