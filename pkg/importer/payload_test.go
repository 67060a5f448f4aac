package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
)

func TestTransactionTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	unix, offset := TransactionTime(date, berlin)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC).Unix(), unix)
	assert.Equal(t, 60, offset)

	_, offset = TransactionTime(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), berlin)
	assert.Equal(t, 120, offset)
}

func TestTruncateCountsCharacters(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "Über", Truncate("Überweisung", 4))
	assert.Equal(t, "", Truncate("", 3))
}

func TestCommentLimit(t *testing.T) {
	b := &payloadBuilder{codec: marker.Must(marker.TransactionTag), location: time.UTC}
	long := strings.Repeat("ä", 250)

	c := b.comment(long, "id-1")
	assert.Equal(t, strings.Repeat("ä", 200)+" [SourceID:id-1]", c)
}

func TestTransferPayload(t *testing.T) {
	b := &payloadBuilder{codec: marker.Must(marker.TransactionTag), location: time.UTC}
	pair := &models.TransferPair{
		First:  &models.SourceRecord{ID: "x", Direction: models.Credit, Amount: decimal.RequireFromString("12.345"), BookingDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		Second: &models.SourceRecord{ID: "y", Direction: models.Debit, Amount: decimal.RequireFromString("12.345"), BookingDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}

	p := b.transfer(pair, "from", "to", "int", "Transfer: rent")
	assert.Equal(t, ezb.TransactionTypeTransfer, p.Type)
	assert.Equal(t, int64(1235), p.SourceAmount)
	assert.Equal(t, int64(1235), p.DestinationAmount)
	assert.Equal(t, "from", p.SourceAccountID)
	assert.Equal(t, "to", p.DestinationAccountID)
	assert.Equal(t, "Transfer: rent [SourceID:x_y]", p.Comment)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Unix(), p.Time)
	assert.Equal(t, []string{}, p.TagIDs)
}

func TestTransactionType(t *testing.T) {
	assert.Equal(t, ezb.TransactionTypeIncome, TransactionType(models.Income))
	assert.Equal(t, ezb.TransactionTypeExpense, TransactionType(models.Expense))
	assert.Equal(t, ezb.TransactionTypeTransfer, TransactionType(models.Transfer))
}
