// Package machine implements the purchase session of a coin-operated vending
// machine: credit accumulation, product selection, purchase, and refund over
// a product inventory and a coin stock.
package machine

import (
	"maps"
	"math"
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
)

// Inventory is the product catalog and stock the machine sells from.
type Inventory interface {
	HasStock(code string) bool
	GetStock(code string) int
	RemoveItem(code string)
	AddStock(code string, quantity int)
	GetProduct(code string) (model.Product, bool)
	ListProducts() []model.ProductListing
}

// Logger receives domain events. Calls are fire-and-forget.
type Logger interface {
	LogSale(model.Sale)
	LogError(model.Failure)
	LogRestock(model.Restock)
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Change           int                  `json:"change"`
	ChangeCoins      []money.Denomination `json:"change_coins"`
	RemainingCredit  int                  `json:"remaining_credit"`
	ProductDispensed string               `json:"product_dispensed"`
}

// RefundResult describes a completed refund.
type RefundResult struct {
	RefundedAmount int                  `json:"refunded_amount"`
	ChangeCoins    []money.Denomination `json:"change_coins"`
}

type selection struct {
	code    string
	product model.Product
}

// Machine is a single-session vending machine. All mutating operations are
// serialized; events are handed to the Logger after the lock is released.
type Machine struct {
	mu            sync.Mutex
	inventory     Inventory
	coins         *money.CoinStock
	logger        Logger
	sessionID     string
	totalInserted int
	selected      *selection
}

// Option configures a Machine.
type Option func(*machineOptions)

type machineOptions struct {
	coins  *money.CoinStock
	logger Logger
	ids    IDGenerator
}

// WithCoinStock uses coins instead of an empty stock.
func WithCoinStock(coins *money.CoinStock) Option {
	return func(o *machineOptions) { o.coins = coins }
}

// WithLogger sends domain events to l.
func WithLogger(l Logger) Option {
	return func(o *machineOptions) { o.logger = l }
}

// WithIDGenerator sets the source of the session id.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *machineOptions) { o.ids = g }
}

// New builds a machine selling from inv. The session id is drawn once and
// kept for the lifetime of the machine.
func New(inv Inventory, opts ...Option) *Machine {
	o := machineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.coins == nil {
		o.coins = money.NewCoinStock()
	}
	if o.ids == nil {
		o.ids = UUIDGenerator{}
	}
	return &Machine{
		inventory: inv,
		coins:     o.coins,
		logger:    o.logger,
		sessionID: o.ids.NewID(),
	}
}

// InsertMoney adds a positive amount to the credit.
func (m *Machine) InsertMoney(amount int) error {
	if amount <= 0 {
		err := newError(model.InsufficientMoney, "invalid amount, please insert a positive amount", map[string]any{
			"action": "insertMoney",
			"amount": amount,
			"reason": "Invalid amount - must be positive",
		})
		m.reportError(err)
		return err
	}
	m.mu.Lock()
	if amount > math.MaxInt-m.totalInserted {
		credit := m.totalInserted
		m.mu.Unlock()
		err := newError(model.InsufficientMoney, "amount exceeds the credit the machine can hold", map[string]any{
			"action":         "insertMoney",
			"amount":         amount,
			"amountInserted": credit,
			"reason":         "Credit overflow",
		})
		m.reportError(err)
		return err
	}
	m.totalInserted += amount
	m.mu.Unlock()
	return nil
}

// SelectProduct makes code the current selection and returns its snapshot.
func (m *Machine) SelectProduct(code string) (model.Product, error) {
	p, ok := m.inventory.GetProduct(code)
	if !ok {
		err := newError(model.ProductNotFound, "product not found", map[string]any{
			"productCode": code,
			"action":      "selectProduct",
		})
		m.reportError(err)
		return model.Product{}, err
	}
	m.mu.Lock()
	m.selected = &selection{code: code, product: p}
	m.mu.Unlock()
	return p, nil
}

// CompletePurchase dispenses the selected product. Preconditions are checked
// in order (selection, stock, credit, change) and nothing is mutated when one
// fails. On success the price and the dispensed change are taken from the
// credit and the selection is cleared.
func (m *Machine) CompletePurchase() (PurchaseResult, error) {
	res, sale, err := m.completePurchase()
	if err != nil {
		m.reportError(err)
		return PurchaseResult{}, err
	}
	if m.logger != nil {
		m.logger.LogSale(sale)
	}
	return res, nil
}

func (m *Machine) completePurchase() (PurchaseResult, model.Sale, *Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selected == nil {
		return PurchaseResult{}, model.Sale{}, newError(model.ProductNotFound, "no product selected", map[string]any{
			"action": "completePurchase",
			"reason": "No product selected",
		})
	}
	code, p := m.selected.code, m.selected.product

	if !m.inventory.HasStock(code) {
		return PurchaseResult{}, model.Sale{}, newError(model.OutOfStock, "out of stock", map[string]any{
			"productCode": code,
			"productName": p.Name,
		})
	}

	if m.totalInserted < p.Price {
		return PurchaseResult{}, model.Sale{}, newError(model.InsufficientMoney, "insufficient money", map[string]any{
			"productCode":    code,
			"productPrice":   p.Price,
			"amountInserted": m.totalInserted,
			"shortfall":      p.Price - m.totalInserted,
		})
	}

	changeNeeded := m.totalInserted - p.Price
	if changeNeeded > 0 && !m.coins.CanMakeChange(changeNeeded) {
		return PurchaseResult{}, model.Sale{}, m.cannotMakeChange(map[string]any{
			"productCode":  code,
			"changeNeeded": changeNeeded,
		})
	}

	changeCoins := []money.Denomination{}
	if changeNeeded > 0 {
		coins, ok := m.coins.MakeChange(changeNeeded)
		if !ok {
			return PurchaseResult{}, model.Sale{}, m.cannotMakeChange(map[string]any{
				"productCode":  code,
				"changeNeeded": changeNeeded,
			})
		}
		changeCoins = coins
	}

	m.inventory.RemoveItem(code)
	paid := m.totalInserted
	m.totalInserted -= p.Price + money.Sum(changeCoins)
	m.selected = nil

	sale := model.Sale{
		ProductCode: code,
		ProductName: p.Name,
		Price:       p.Price,
		AmountPaid:  paid,
		Change:      changeNeeded,
		ChangeCoins: changeCoins,
		SessionID:   m.sessionID,
	}
	return PurchaseResult{
		Change:           changeNeeded,
		ChangeCoins:      changeCoins,
		RemainingCredit:  m.totalInserted,
		ProductDispensed: p.Name,
	}, sale, nil
}

// RefundMoney returns the whole credit in coins. When the coin stock cannot
// make the amount the credit is kept.
func (m *Machine) RefundMoney() (RefundResult, error) {
	res, err := m.refundMoney()
	if err != nil {
		m.reportError(err)
		return RefundResult{}, err
	}
	return res, nil
}

func (m *Machine) refundMoney() (RefundResult, *Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.totalInserted <= 0 {
		return RefundResult{}, newError(model.InsufficientMoney, "no credit to refund", map[string]any{
			"action": "refundMoney",
			"reason": "No credit to refund",
		})
	}
	coins, ok := m.coins.MakeChange(m.totalInserted)
	if !ok {
		return RefundResult{}, m.cannotMakeChange(map[string]any{
			"action":         "refundMoney",
			"amountToRefund": m.totalInserted,
		})
	}
	refunded := m.totalInserted
	m.totalInserted = 0
	return RefundResult{RefundedAmount: refunded, ChangeCoins: coins}, nil
}

// Restock adds quantity units of code and returns the new stock.
// Non-positive quantities leave the stock unchanged and emit no event.
func (m *Machine) Restock(code string, quantity int) (int, error) {
	if _, ok := m.inventory.GetProduct(code); !ok {
		err := newError(model.ProductNotFound, "product not found", map[string]any{
			"productCode": code,
			"action":      "restock",
		})
		m.reportError(err)
		return 0, err
	}
	m.mu.Lock()
	if quantity <= 0 {
		stock := m.inventory.GetStock(code)
		m.mu.Unlock()
		return stock, nil
	}
	m.inventory.AddStock(code, quantity)
	stock := m.inventory.GetStock(code)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.LogRestock(model.Restock{
			ProductCode:   code,
			QuantityAdded: quantity,
			NewStock:      stock,
			SessionID:     m.sessionID,
		})
	}
	return stock, nil
}

// LoadCoins refills the coin stock.
func (m *Machine) LoadCoins(d money.Denomination, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coins.AddCoins(d, quantity)
}

// TotalInserted returns the current credit.
func (m *Machine) TotalInserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalInserted
}

// Selection returns the selected product, if any.
func (m *Machine) Selection() (model.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return model.Product{}, false
	}
	return m.selected.product, true
}

// Products lists the inventory.
func (m *Machine) Products() []model.ProductListing {
	return m.inventory.ListProducts()
}

// CoinStock returns the machine's coin ledger.
func (m *Machine) CoinStock() *money.CoinStock {
	return m.coins
}

func (m *Machine) SessionID() string {
	return m.sessionID
}

func (m *Machine) cannotMakeChange(ctx map[string]any) *Error {
	ctx["availableCoins"] = m.coins.AllCoins()
	return newError(model.CannotMakeChange, "cannot provide change - exact payment required", ctx)
}

func (m *Machine) reportError(err *Error) {
	if m.logger == nil {
		return
	}
	m.logger.LogError(model.Failure{
		Kind:      err.Kind,
		Context:   maps.Clone(err.Context),
		SessionID: m.sessionID,
	})
}
