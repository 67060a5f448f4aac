package models

import "time"

// CombinedIDSeparator joins the two source ids of a transfer pair.
const CombinedIDSeparator = "_"

// TransferPair is two source records that represent a single movement of
// funds between two accounts. First is the record the matcher scanned from,
// Second the partner it found.
type TransferPair struct {
	First  *SourceRecord
	Second *SourceRecord
}

// Sender is the debit side.
func (p *TransferPair) Sender() *SourceRecord {
	if p.First.Direction == Debit {
		return p.First
	}
	return p.Second
}

// Receiver is the credit side.
func (p *TransferPair) Receiver() *SourceRecord {
	if p.Second.Direction == Credit {
		return p.Second
	}
	return p.First
}

// CombinedID is the reconciliation id of the pair, e.g. "A_B".
func (p *TransferPair) CombinedID() string {
	return p.First.ID + CombinedIDSeparator + p.Second.ID
}

// IDs returns both constituent source ids.
func (p *TransferPair) IDs() []string {
	return []string{p.First.ID, p.Second.ID}
}

// Date is the earlier of both booking dates.
func (p *TransferPair) Date() time.Time {
	if p.Second.BookingDate.Before(p.First.BookingDate) {
		return p.Second.BookingDate
	}
	return p.First.BookingDate
}

func (p *TransferPair) MinorUnits() int64 {
	return p.First.MinorUnits()
}
