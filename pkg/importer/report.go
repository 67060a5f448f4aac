package importer

import (
	"github.com/shopspring/decimal"
	"github.com/yurifrl/ezimport/pkg/models"
	"github.com/yurifrl/ezimport/pkg/reconcile"
)

// Entry is the outcome for one source record or transfer pair.
type Entry struct {
	ID          string
	AccountID   string
	Date        string
	Kind        models.Kind
	Amount      decimal.Decimal
	Description string
	Status      reconcile.Status
	Err         error
}

func (e *Entry) Failed() bool {
	return e.Err != nil
}

// Report lists every record the run looked at, in processing order.
type Report struct {
	Entries []*Entry
}

func (r *Report) add(rec *models.SourceRecord, kind models.Kind, status reconcile.Status, err error) {
	r.Entries = append(r.Entries, &Entry{
		ID:          rec.ID,
		AccountID:   rec.AccountID,
		Date:        rec.Date(),
		Kind:        kind,
		Amount:      rec.Amount,
		Description: rec.Description,
		Status:      status,
		Err:         err,
	})
}

func (r *Report) addPair(pair *models.TransferPair, err error) {
	sender := pair.Sender()
	r.Entries = append(r.Entries, &Entry{
		ID:          pair.CombinedID(),
		AccountID:   sender.AccountID + "->" + pair.Receiver().AccountID,
		Date:        pair.Date().Format(models.DateLayout),
		Kind:        models.Transfer,
		Amount:      sender.Amount,
		Description: sender.Description,
		Status:      reconcile.ToAdd,
		Err:         err,
	})
}

// Count returns the number of entries with status s that did not fail.
func (r *Report) Count(s reconcile.Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == s && !e.Failed() {
			n++
		}
	}
	return n
}
