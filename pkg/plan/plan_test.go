package plan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/importer"
	"gopkg.in/yaml.v3"
)

type readOnlyLedger struct {
	existing []*ezb.Transaction
	writes   int
}

func (l *readOnlyLedger) ListAccounts(ctx context.Context) ([]*ezb.Account, error) {
	return []*ezb.Account{{ID: "acc-1", Name: "Giro", Comment: "[SourceAcctID:100]"}}, nil
}

func (l *readOnlyLedger) ListCategories(ctx context.Context) (map[ezb.CategoryType][]*ezb.Category, error) {
	return map[ezb.CategoryType][]*ezb.Category{}, nil
}

func (l *readOnlyLedger) ListAllTransactions(ctx context.Context) ([]*ezb.Transaction, error) {
	return l.existing, nil
}

func (l *readOnlyLedger) CreateCategory(ctx context.Context, payload *ezb.NewCategory) (*ezb.Category, error) {
	l.writes++
	return &ezb.Category{ID: "real"}, nil
}

func (l *readOnlyLedger) CreateTransaction(ctx context.Context, payload *ezb.NewTransaction) (*ezb.Transaction, error) {
	l.writes++
	return &ezb.Transaction{ID: "real"}, nil
}

func dryRun(t *testing.T) (*readOnlyLedger, *Recorder, *importer.Importer, *Plan) {
	t.Helper()
	dir := t.TempDir()
	content := `[
		{"Id": "t0", "BookgDt": "2024-01-31", "Amt": "9.00", "RmtInf": "Old", "CdtDbtInd": "DBIT"},
		{"Id": "t1", "BookgDt": "2024-02-01", "Amt": "50.00", "RmtInf": "Salary", "CdtDbtInd": "CRDT", "Category": "Income:Salary"},
		{"Id": "t2", "BookgDt": "2024-02-02", "Amt": "12.50", "RmtInf": "Lunch, downtown", "CdtDbtInd": "DBIT", "Category": "Food"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "100.json"), []byte(content), 0644))

	ledger := &readOnlyLedger{existing: []*ezb.Transaction{{ID: "x", Comment: "Old [SourceID:t0]"}}}
	rec := NewRecorder(ledger, log.Default())
	imp, err := importer.New(rec, importer.DefaultOptions(dir), log.Default())
	require.NoError(t, err)

	stats, err := imp.Run(context.Background())
	require.NoError(t, err)
	return ledger, rec, imp, rec.Plan(stats)
}

func TestRecorderNeverWrites(t *testing.T) {
	ledger, rec, _, p := dryRun(t)

	assert.Equal(t, 0, ledger.writes)
	require.Len(t, rec.Categories, 3)
	assert.Equal(t, "plan-1", rec.Categories[0].ID)
	assert.Equal(t, "Income", rec.Categories[0].Name)
	assert.Equal(t, "plan-1", rec.Categories[1].ParentID, "sub category hangs under the planned top level")

	require.Len(t, p.Transactions, 2)
	assert.Equal(t, "plan-2", p.Transactions[0].Payload.CategoryID)
	assert.Equal(t, 2, p.Stats.NewTransactions)
	assert.Equal(t, 1, p.Stats.Skipped)
	assert.Equal(t, 3, p.Stats.NewCategories)
}

func TestTransactionRecord(t *testing.T) {
	tx := &Transaction{ID: "plan-1", Payload: &ezb.NewTransaction{
		Type:            ezb.TransactionTypeExpense,
		Time:            1706742000, // 2024-02-01 00:00 +01:00
		UTCOffset:       60,
		SourceAccountID: "acc-1",
		SourceAmount:    1250,
		CategoryID:      "7",
		Comment:         "Lunch [SourceID:t2]",
	}}

	assert.Equal(t, "2024-02-01", tx.Date())
	assert.Equal(t, "expense", tx.Kind())
	assert.Equal(t, "12.50", tx.Amount())
	assert.Equal(t, "acc-1", tx.Account())
	assert.Equal(t, "", tx.Destination())
}

func TestWriteYAML(t *testing.T) {
	_, _, _, p := dryRun(t)

	var buf bytes.Buffer
	require.NoError(t, p.WriteYAML(&buf))

	var decoded struct {
		Stats struct {
			NewTransactions int `yaml:"new_transactions"`
		} `yaml:"stats"`
		Transactions []struct {
			ID      string `yaml:"id"`
			Payload struct {
				SourceAmount int64  `yaml:"sourceAmount"`
				Comment      string `yaml:"comment"`
			} `yaml:"payload"`
		} `yaml:"transactions"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Stats.NewTransactions)
	require.Len(t, decoded.Transactions, 2)
	assert.Equal(t, int64(5000), decoded.Transactions[0].Payload.SourceAmount)
	assert.Equal(t, "Salary [SourceID:t1]", decoded.Transactions[0].Payload.Comment)
}

func TestWriteCSV(t *testing.T) {
	_, _, _, p := dryRun(t)

	var buf bytes.Buffer
	require.NoError(t, p.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "2024-02-01,income,acc-1,,plan-2,50.00,Salary [SourceID:t1]\n")
	assert.Contains(t, buf.String(), `"Lunch, downtown [SourceID:t2]"`)
}

func TestDump(t *testing.T) {
	_, _, _, p := dryRun(t)

	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf))
	assert.Contains(t, buf.String(), "Salary [SourceID:t1]")
	assert.Contains(t, buf.String(), "plan-1")
}

func TestPrint(t *testing.T) {
	_, _, imp, p := dryRun(t)

	var buf bytes.Buffer
	p.Print(&buf, imp.Report())
	out := buf.String()

	assert.Contains(t, out, "= 2024-01-31")
	assert.Contains(t, out, "+ 2024-02-01")
	assert.Contains(t, out, "+ category Food")
	assert.Contains(t, out, "Plan: 2 transaction(s) and 0 transfer(s) will be added, 3 new categories, 1 already in sync")
}
