// Package reconcile finds out which source records already exist in the
// target ledger, using the id marker embedded in transaction comments.
package reconcile

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
)

type Lister interface {
	ListAllTransactions(ctx context.Context) ([]*ezb.Transaction, error)
}

// Status is the reconciliation result for one source record or pair.
type Status int

const (
	// Synced records are already present remotely.
	Synced Status = iota
	// ToAdd records are missing and get created.
	ToAdd
)

func (s Status) String() string {
	if s == Synced {
		return "synced"
	}
	return "to_add"
}

// IDSet holds the source ids known to the target ledger. It grows while a
// run imports records so a single run never creates the same id twice.
type IDSet struct {
	ids map[string]struct{}
}

func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *IDSet) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

func (s *IDSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *IDSet) Status(id string) Status {
	if s.Has(id) {
		return Synced
	}
	return ToAdd
}

func (s *IDSet) Len() int {
	return len(s.ids)
}

// IDs returns the set sorted.
func (s *IDSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type Ledger struct {
	api    Lister
	codec  *marker.Codec
	logger *log.Logger
}

func New(api Lister, codec *marker.Codec, logger *log.Logger) *Ledger {
	return &Ledger{
		api:    api,
		codec:  codec,
		logger: logger,
	}
}

// LoadExistingIDs scans every target transaction once. A failed scan is
// logged and yields an empty set, so the run may re-import records.
func (l *Ledger) LoadExistingIDs(ctx context.Context) *IDSet {
	set := NewIDSet()

	txs, err := l.api.ListAllTransactions(ctx)
	if err != nil {
		l.logger.Error("failed to load existing transactions, assuming none exist", "err", err)
		return set
	}

	for _, tx := range txs {
		l.collect(set, tx.Comment)
	}

	l.logger.Info("existing source ids loaded", "transactions", len(txs), "ids", set.Len())
	return set
}

// collect adds the ids found in one comment. A combined payload "A_B"
// yields A and B.
func (l *Ledger) collect(set *IDSet, comment string) {
	ids := l.codec.ExtractIDs(comment, models.CombinedIDSeparator)
	if len(ids) > 1 {
		l.logger.Debug("transfer marker found", "ids", ids)
	}
	set.Add(ids...)
}
