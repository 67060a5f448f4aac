// Package importer drives one import run: it reads the source export files,
// classifies every record and creates the missing transactions and transfers
// in the target ledger.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ezimport/pkg/accounts"
	"github.com/yurifrl/ezimport/pkg/categories"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
	"github.com/yurifrl/ezimport/pkg/parser"
	"github.com/yurifrl/ezimport/pkg/reconcile"
	"github.com/yurifrl/ezimport/pkg/transfer"
)

// API is everything a run needs from the target ledger.
type API interface {
	accounts.Lister
	categories.API
	reconcile.Lister
	CreateTransaction(ctx context.Context, payload *ezb.NewTransaction) (*ezb.Transaction, error)
}

type Options struct {
	Folder string
	// MinDate drops records booked before it. Zero disables the filter.
	MinDate          time.Time
	ToleranceDays    int
	TransferCategory string
	ExternalPrefix   string
	TransferPrefix   string
	TransactionTag   string
	AccountTag       string
	Heuristic        categories.Heuristic
	Location         *time.Location
}

// DefaultOptions returns the stock settings for folder.
func DefaultOptions(folder string) Options {
	return Options{
		Folder:           folder,
		ToleranceDays:    transfer.DefaultToleranceDays,
		TransferCategory: "Umbuchung",
		ExternalPrefix:   "[Extern] ",
		TransferPrefix:   "Transfer: ",
		TransactionTag:   marker.TransactionTag,
		AccountTag:       marker.AccountTag,
		Heuristic:        categories.DefaultHeuristic(),
		Location:         time.UTC,
	}
}

type Importer struct {
	api        API
	opts       Options
	logger     *log.Logger
	parser     *parser.Parser
	accounts   *accounts.Resolver
	categories *categories.Resolver
	ledger     *reconcile.Ledger
	matcher    *transfer.Matcher
	payloads   *payloadBuilder
	stats      *models.Stats
	report     *Report
}

func New(api API, opts Options, logger *log.Logger) (*Importer, error) {
	txCodec, err := marker.New(opts.TransactionTag)
	if err != nil {
		return nil, err
	}
	accCodec, err := marker.New(opts.AccountTag)
	if err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Importer{
		api:        api,
		opts:       opts,
		logger:     logger,
		parser:     parser.New(logger),
		accounts:   accounts.New(api, accCodec, logger),
		categories: categories.New(api, opts.TransferCategory, opts.Heuristic, logger),
		ledger:     reconcile.New(api, txCodec, logger),
		matcher:    transfer.NewMatcher(opts.ToleranceDays, logger),
		payloads:   &payloadBuilder{codec: txCodec, location: opts.Location},
		stats:      &models.Stats{},
		report:     &Report{},
	}, nil
}

func (i *Importer) Stats() *models.Stats {
	return i.stats
}

func (i *Importer) Report() *Report {
	return i.report
}

// Run executes the phases in order: load existing ids, import direct
// records, resolve transfers. Record level failures are counted in the
// returned stats; the error is only set when the run could not proceed or
// was cancelled.
func (i *Importer) Run(ctx context.Context) (*models.Stats, error) {
	i.logger.Info("import started", "folder", i.opts.Folder, "min_date", i.minDate())

	if err := i.accounts.Load(ctx); err != nil {
		i.logger.Warn("continuing without account mapping", "err", err)
	}
	if err := i.categories.LoadCategories(ctx); err != nil {
		i.logger.Warn("continuing without category cache", "err", err)
	}
	if err := i.categories.LoadTransferCategories(ctx); err != nil {
		i.logger.Warn("continuing without transfer categories", "err", err)
	}

	files, err := ListFiles(i.opts.Folder)
	if err != nil {
		return i.stats, err
	}

	i.logger.Info("phase 1: loading existing ids")
	existing := i.ledger.LoadExistingIDs(ctx)

	i.logger.Info("phase 2: importing transactions", "files", len(files))
	transfers := i.importFiles(ctx, files, existing)
	if err := ctx.Err(); err != nil {
		return i.stats, err
	}

	i.logger.Info("phase 3: pairing transfers", "candidates", len(transfers))
	i.importTransfers(ctx, transfers, existing)
	if err := ctx.Err(); err != nil {
		return i.stats, err
	}

	i.logger.Info("import finished",
		"new_transactions", i.stats.NewTransactions,
		"new_transfers", i.stats.NewTransfers,
		"new_categories", i.stats.NewCategories,
		"skipped", i.stats.Skipped,
		"errors", i.stats.Errors,
	)
	return i.stats, nil
}

func (i *Importer) minDate() string {
	if i.opts.MinDate.IsZero() {
		return "none"
	}
	return i.opts.MinDate.Format(models.DateLayout)
}

// importFiles imports every non-transfer record and returns the collected
// transfer candidates of all accounts.
func (i *Importer) importFiles(ctx context.Context, files []string, existing *reconcile.IDSet) []*models.SourceRecord {
	var transfers []*models.SourceRecord

	for _, path := range files {
		if ctx.Err() != nil {
			return transfers
		}

		sourceID := parser.AccountID(path)
		accountID, ok := i.accounts.Resolve(sourceID)
		if !ok {
			i.logger.Warn("no target account for export file, skipping", "file", path, "source_account", sourceID,
				"hint", fmt.Sprintf("add %s to the account comment", marker.Must(i.opts.AccountTag).Encode(sourceID)))
			continue
		}

		res, err := i.parser.ParseFile(path)
		if err != nil {
			i.logger.Error("failed to read export file", "file", path, "err", err)
			i.stats.IncErrors()
			continue
		}
		i.logger.Info("processing account", "source_account", sourceID, "account", accountID, "records", len(res.Records), "pending", res.Pending)

		for _, failure := range res.Failures {
			i.logger.Error("failed to parse entry", "file", path, "id", failure.ID, "err", failure.Err)
			i.logger.Debug("raw entry", "id", failure.ID, "raw", string(failure.Raw))
			i.stats.IncErrors()
		}

		for _, rec := range res.Records {
			if ctx.Err() != nil {
				return transfers
			}
			if !i.opts.MinDate.IsZero() && rec.BookingDate.Before(i.opts.MinDate) {
				continue
			}
			if existing.Has(rec.ID) {
				i.stats.IncSkipped()
				i.report.add(rec, rec.Kind(i.opts.TransferCategory), reconcile.Synced, nil)
				continue
			}
			if rec.IsTransfer(i.opts.TransferCategory) {
				i.logger.Debug("transfer collected", "id", rec.ID, "amount", rec.Amount.String(), "direction", rec.Direction)
				transfers = append(transfers, rec)
				continue
			}
			i.importRecord(ctx, rec, accountID, existing)
		}
	}

	return transfers
}

func (i *Importer) importRecord(ctx context.Context, rec *models.SourceRecord, accountID string, existing *reconcile.IDSet) {
	kind := rec.DirectionKind()
	categoryID := i.categories.EnsureHierarchy(ctx, rec.Category, kind, i.stats)
	payload := i.payloads.transaction(kind, rec.BookingDate, rec.MinorUnits(), accountID, categoryID, rec.Description, rec.ID)

	if err := i.create(ctx, payload); err != nil {
		i.logger.Error("failed to import transaction", "id", rec.ID, "err", err)
		i.stats.IncErrors()
		i.report.add(rec, kind, reconcile.ToAdd, err)
		return
	}

	existing.Add(rec.ID)
	i.stats.IncTransactions()
	i.report.add(rec, kind, reconcile.ToAdd, nil)
	i.logger.Debug("transaction imported", "id", rec.ID, "kind", kind, "amount", rec.Amount.String(), "category", categoryID)
}

func (i *Importer) importTransfers(ctx context.Context, candidates []*models.SourceRecord, existing *reconcile.IDSet) {
	pairs, unmatched := i.matcher.FindMatches(candidates, existing)
	i.logger.Info("transfers matched", "pairs", len(pairs), "unmatched", len(unmatched))

	for _, pair := range pairs {
		if ctx.Err() != nil {
			return
		}
		i.importPair(ctx, pair, existing)
	}
	for _, rec := range unmatched {
		if ctx.Err() != nil {
			return
		}
		i.importUnmatched(ctx, rec, existing)
	}
}

func (i *Importer) importPair(ctx context.Context, pair *models.TransferPair, existing *reconcile.IDSet) {
	sender, receiver := pair.Sender(), pair.Receiver()
	from, okFrom := i.accounts.Resolve(sender.AccountID)
	to, okTo := i.accounts.Resolve(receiver.AccountID)
	if !okFrom || !okTo {
		err := fmt.Errorf("transfer %s references an unmapped account", pair.CombinedID())
		i.logger.Error("failed to import transfer", "id", pair.CombinedID(), "err", err)
		i.stats.IncErrors()
		i.report.addPair(pair, err)
		return
	}

	i.logger.Info("transfer pair", "from", sender.AccountID, "to", receiver.AccountID, "amount", sender.Amount.String(), "ids", pair.CombinedID())

	description := i.opts.TransferPrefix + Truncate(sender.Description, MaxTransferDescription)
	payload := i.payloads.transfer(pair, from, to, i.categories.TransferCategoryID(), description)

	if err := i.create(ctx, payload); err != nil {
		i.logger.Error("failed to import transfer", "id", pair.CombinedID(), "err", err)
		i.stats.IncErrors()
		i.report.addPair(pair, err)
		return
	}

	existing.Add(pair.IDs()...)
	i.stats.IncTransfers()
	i.report.addPair(pair, nil)
}

// importUnmatched books a transfer leg without counterpart as plain income or
// expense filed under the external transfer category.
func (i *Importer) importUnmatched(ctx context.Context, rec *models.SourceRecord, existing *reconcile.IDSet) {
	kind := rec.DirectionKind()
	accountID, ok := i.accounts.Resolve(rec.AccountID)
	if !ok {
		err := fmt.Errorf("record %s references an unmapped account", rec.ID)
		i.logger.Error("failed to import external transfer", "id", rec.ID, "err", err)
		i.stats.IncErrors()
		i.report.add(rec, kind, reconcile.ToAdd, err)
		return
	}

	i.logger.Warn("no counterpart for transfer, importing as external", "id", rec.ID, "account", rec.AccountID, "amount", rec.Amount.String(), "kind", kind)

	categoryID := i.categories.ExternalTransferCategory(rec.IsIncome())
	payload := i.payloads.transaction(kind, rec.BookingDate, rec.MinorUnits(), accountID, categoryID, i.opts.ExternalPrefix+rec.Description, rec.ID)

	if err := i.create(ctx, payload); err != nil {
		i.logger.Error("failed to import external transfer", "id", rec.ID, "err", err)
		i.stats.IncErrors()
		i.report.add(rec, kind, reconcile.ToAdd, err)
		return
	}

	existing.Add(rec.ID)
	i.stats.IncTransactions()
	i.report.add(rec, kind, reconcile.ToAdd, nil)
}

func (i *Importer) create(ctx context.Context, payload *ezb.NewTransaction) error {
	_, err := i.api.CreateTransaction(ctx, payload)
	return err
}
