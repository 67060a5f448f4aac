// Package plan implements dry runs. A Recorder stands in for the target
// ledger: reads pass through, writes are recorded and answered with
// synthetic ids so the import pipeline runs unchanged.
package plan

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/shopspring/decimal"
	"github.com/yurifrl/ezimport/pkg/csv"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/importer"
	"github.com/yurifrl/ezimport/pkg/models"
	"gopkg.in/yaml.v3"
)

// IDPrefix marks ids handed out by the recorder.
const IDPrefix = "plan-"

type Category struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Type     ezb.CategoryType `yaml:"type"`
	ParentID string           `yaml:"parent_id"`
}

// Transaction is a recorded create call.
type Transaction struct {
	ID      string              `yaml:"id"`
	Payload *ezb.NewTransaction `yaml:"payload"`
}

func (t *Transaction) Date() string {
	zone := time.FixedZone("", t.Payload.UTCOffset*60)
	return time.Unix(t.Payload.Time, 0).In(zone).Format(models.DateLayout)
}

func (t *Transaction) Kind() string {
	switch t.Payload.Type {
	case ezb.TransactionTypeIncome:
		return models.Income.String()
	case ezb.TransactionTypeTransfer:
		return models.Transfer.String()
	default:
		return models.Expense.String()
	}
}

func (t *Transaction) Account() string     { return t.Payload.SourceAccountID }
func (t *Transaction) Destination() string { return t.Payload.DestinationAccountID }
func (t *Transaction) Category() string    { return t.Payload.CategoryID }
func (t *Transaction) Comment() string     { return t.Payload.Comment }

// Amount renders the minor units as a decimal string.
func (t *Transaction) Amount() string {
	return decimal.New(t.Payload.SourceAmount, -2).StringFixed(2)
}

type Recorder struct {
	api    importer.API
	logger *log.Logger
	seq    int

	Categories   []*Category
	Transactions []*Transaction
}

func NewRecorder(api importer.API, logger *log.Logger) *Recorder {
	return &Recorder{
		api:    api,
		logger: logger,
	}
}

func (r *Recorder) ListAccounts(ctx context.Context) ([]*ezb.Account, error) {
	return r.api.ListAccounts(ctx)
}

func (r *Recorder) ListCategories(ctx context.Context) (map[ezb.CategoryType][]*ezb.Category, error) {
	return r.api.ListCategories(ctx)
}

func (r *Recorder) ListAllTransactions(ctx context.Context) ([]*ezb.Transaction, error) {
	return r.api.ListAllTransactions(ctx)
}

func (r *Recorder) CreateCategory(ctx context.Context, payload *ezb.NewCategory) (*ezb.Category, error) {
	id := r.nextID()
	r.Categories = append(r.Categories, &Category{ID: id, Name: payload.Name, Type: payload.Type, ParentID: payload.ParentID})
	r.logger.Debug("planned category", "id", id, "name", payload.Name, "type", payload.Type, "parent", payload.ParentID)
	return &ezb.Category{ID: id, Name: payload.Name, Type: payload.Type, ParentID: payload.ParentID}, nil
}

func (r *Recorder) CreateTransaction(ctx context.Context, payload *ezb.NewTransaction) (*ezb.Transaction, error) {
	id := r.nextID()
	r.Transactions = append(r.Transactions, &Transaction{ID: id, Payload: payload})
	r.logger.Debug("planned transaction", "id", id, "type", payload.Type, "amount", payload.SourceAmount, "comment", payload.Comment)
	return &ezb.Transaction{
		ID:                   id,
		Type:                 payload.Type,
		Time:                 payload.Time,
		UTCOffset:            payload.UTCOffset,
		CategoryID:           payload.CategoryID,
		SourceAccountID:      payload.SourceAccountID,
		SourceAmount:         payload.SourceAmount,
		DestinationAccountID: payload.DestinationAccountID,
		DestinationAmount:    payload.DestinationAmount,
		Comment:              payload.Comment,
	}, nil
}

func (r *Recorder) nextID() string {
	r.seq++
	return fmt.Sprintf("%s%d", IDPrefix, r.seq)
}

// Plan is the outcome of a dry run.
type Plan struct {
	Stats        *models.Stats  `yaml:"stats"`
	Categories   []*Category    `yaml:"categories"`
	Transactions []*Transaction `yaml:"transactions"`
}

func (r *Recorder) Plan(stats *models.Stats) *Plan {
	return &Plan{
		Stats:        stats,
		Categories:   r.Categories,
		Transactions: r.Transactions,
	}
}

func (p *Plan) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return enc.Close()
}

func (p *Plan) WriteCSV(w io.Writer) error {
	data, err := csv.Create(p.Transactions, nil)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Dump pretty prints every recorded payload without colours.
func (p *Plan) Dump(w io.Writer) error {
	printer := pp.New()
	printer.SetColoringEnabled(false)
	_, err := io.WriteString(w, printer.Sprintln(p.Categories, p.Transactions))
	return err
}
