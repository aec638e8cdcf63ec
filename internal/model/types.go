// Package model defines domain types used by the service.
package model

import (
	"time"

	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
)

// Product is the catalog snapshot of a sellable item.
type Product struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Category string `json:"category"`
}

// ProductListing is a product together with its current stock.
type ProductListing struct {
	Product
	Stock int `json:"stock"`
}

// ErrorKind classifies a rejected machine operation.
type ErrorKind string

const (
	InsufficientMoney ErrorKind = "INSUFFICIENT_MONEY"
	OutOfStock        ErrorKind = "OUT_OF_STOCK"
	CannotMakeChange  ErrorKind = "CANNOT_MAKE_CHANGE"
	ProductNotFound   ErrorKind = "PRODUCT_NOT_FOUND"
)

// Sale is emitted when a purchase completes.
type Sale struct {
	ProductCode string               `json:"product_code"`
	ProductName string               `json:"product_name"`
	Price       int                  `json:"price"`
	AmountPaid  int                  `json:"amount_paid"`
	Change      int                  `json:"change"`
	ChangeCoins []money.Denomination `json:"change_coins"`
	SessionID   string               `json:"session_id,omitempty"`
}

// Failure is emitted when an operation is rejected.
type Failure struct {
	Kind      ErrorKind      `json:"error_type"`
	Context   map[string]any `json:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// Restock is emitted when an operator adds stock for a product.
type Restock struct {
	ProductCode   string `json:"product_code"`
	QuantityAdded int    `json:"quantity_added"`
	NewStock      int    `json:"new_stock"`
	SessionID     string `json:"session_id,omitempty"`
}

// EntryType names the kind of a journal entry.
type EntryType string

const (
	EntrySale    EntryType = "SALE"
	EntryError   EntryType = "ERROR"
	EntryRestock EntryType = "RESTOCK"
)

// LogEntry is one stamped record of the transaction journal.
type LogEntry struct {
	Sequence  uint64    `json:"sequence"`
	Type      EntryType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Sale      *Sale     `json:"sale,omitempty"`
	Error     *Failure  `json:"error,omitempty"`
	Restock   *Restock  `json:"restock,omitempty"`
}

// SaleEntry wraps s in an unstamped journal entry.
func SaleEntry(s Sale) LogEntry { return LogEntry{Type: EntrySale, Sale: &s} }

// ErrorEntry wraps f in an unstamped journal entry.
func ErrorEntry(f Failure) LogEntry { return LogEntry{Type: EntryError, Error: &f} }

// RestockEntry wraps r in an unstamped journal entry.
func RestockEntry(r Restock) LogEntry { return LogEntry{Type: EntryRestock, Restock: &r} }
