package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the booking direction code of a source record.
type Direction string

const (
	Credit Direction = "CRDT"
	Debit  Direction = "DBIT"
)

func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// BookingStatus is the booking state code of a source record.
type BookingStatus string

const (
	Booked  BookingStatus = "BOOK"
	Pending BookingStatus = "PDNG"
)

func (s BookingStatus) Valid() bool {
	return s == Booked || s == Pending
}

// Kind classifies a record for the target ledger.
type Kind int

const (
	Income Kind = iota + 1
	Expense
	Transfer
)

func (k Kind) String() string {
	switch k {
	case Income:
		return "income"
	case Expense:
		return "expense"
	case Transfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// DateLayout is the calendar date format used by source exports and config.
const DateLayout = "2006-01-02"

// SourceRecord is one booked entry of a source export file. Amount is always
// the absolute value; Direction carries the sign.
type SourceRecord struct {
	ID          string
	BookingDate time.Time
	Amount      decimal.Decimal
	Description string
	Direction   Direction
	Category    string
	Status      BookingStatus
	AccountID   string
}

func (r *SourceRecord) IsBooked() bool {
	return r.Status == Booked
}

func (r *SourceRecord) IsIncome() bool {
	return r.Direction == Credit
}

// IsTransfer reports whether the record carries the reserved transfer
// category name and must go through pairing instead of direct import.
func (r *SourceRecord) IsTransfer(transferCategory string) bool {
	return r.Category == transferCategory
}

// Kind returns the target transaction kind for the record.
func (r *SourceRecord) Kind(transferCategory string) Kind {
	if r.IsTransfer(transferCategory) {
		return Transfer
	}
	return r.DirectionKind()
}

// DirectionKind ignores the category and derives income or expense from the direction alone.
func (r *SourceRecord) DirectionKind() Kind {
	if r.IsIncome() {
		return Income
	}
	return Expense
}

// Date returns the booking date formatted as YYYY-MM-DD.
func (r *SourceRecord) Date() string {
	return r.BookingDate.Format(DateLayout)
}

// MinorUnits converts the amount to integer cents, rounding half away from zero.
func (r *SourceRecord) MinorUnits() int64 {
	return MinorUnits(r.Amount)
}

// MinorUnits converts an amount to integer cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Abs().Shift(2).Round(0).IntPart()
}
