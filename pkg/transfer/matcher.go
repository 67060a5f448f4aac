// Package transfer pairs the debit and credit legs of transfers between
// source accounts.
package transfer

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ezimport/pkg/models"
)

// DefaultToleranceDays is the default allowed booking date gap between legs.
const DefaultToleranceDays = 3

// Existing reports whether a source id is already in the target ledger.
type Existing interface {
	Has(id string) bool
}

type Matcher struct {
	toleranceDays int
	logger        *log.Logger
}

func NewMatcher(toleranceDays int, logger *log.Logger) *Matcher {
	if toleranceDays < 0 {
		toleranceDays = 0
	}
	return &Matcher{
		toleranceDays: toleranceDays,
		logger:        logger,
	}
}

// FindMatches scans candidates left to right and pairs each one with the
// first later candidate that matches. The first fit wins even when a later
// candidate has a closer date. Candidates whose id already exists are left
// out of both results.
func (m *Matcher) FindMatches(candidates []*models.SourceRecord, existing Existing) ([]*models.TransferPair, []*models.SourceRecord) {
	var (
		pairs     []*models.TransferPair
		unmatched []*models.SourceRecord
		processed = make(map[int]bool, len(candidates))
	)

	for i, rec := range candidates {
		if existing != nil && existing.Has(rec.ID) {
			processed[i] = true
		}
	}

	for i, a := range candidates {
		if processed[i] {
			continue
		}
		processed[i] = true

		match := -1
		for j := i + 1; j < len(candidates); j++ {
			if processed[j] {
				continue
			}
			if m.Matches(a, candidates[j]) {
				match = j
				break
			}
		}

		if match < 0 {
			m.logger.Debug("transfer without counterpart", "id", a.ID, "account", a.AccountID, "amount", a.Amount.String(), "date", a.Date())
			unmatched = append(unmatched, a)
			continue
		}

		processed[match] = true
		pair := &models.TransferPair{First: a, Second: candidates[match]}
		m.logger.Debug("transfer matched", "id", pair.CombinedID(), "amount", a.Amount.String(), "from", pair.Sender().AccountID, "to", pair.Receiver().AccountID)
		pairs = append(pairs, pair)
	}

	return pairs, unmatched
}

// Matches is the pairing predicate: equal amount, different accounts,
// opposite directions and booking dates at most toleranceDays apart.
func (m *Matcher) Matches(a, b *models.SourceRecord) bool {
	if !a.Amount.Equal(b.Amount) {
		return false
	}
	if a.AccountID == b.AccountID {
		return false
	}
	if a.Direction == b.Direction {
		return false
	}
	return DaysBetween(a.BookingDate, b.BookingDate) <= m.toleranceDays
}

// DaysBetween returns the absolute number of whole calendar days between two dates.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
