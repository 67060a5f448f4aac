package importer

import (
	"time"

	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
)

// Description limits, counted in characters.
const (
	MaxCommentDescription  = 200
	MaxTransferDescription = 100
)

// TransactionType maps a record kind to the ledger's transaction type.
func TransactionType(kind models.Kind) ezb.TransactionType {
	switch kind {
	case models.Income:
		return ezb.TransactionTypeIncome
	case models.Transfer:
		return ezb.TransactionTypeTransfer
	default:
		return ezb.TransactionTypeExpense
	}
}

// TransactionTime is midnight of date's calendar day in loc as epoch seconds,
// plus the zone's UTC offset in minutes at that instant.
func TransactionTime(date time.Time, loc *time.Location) (int64, int) {
	y, m, d := date.Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return t.Unix(), ezb.OffsetMinutes(t)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type payloadBuilder struct {
	codec    *marker.Codec
	location *time.Location
}

// comment is the description cut to the comment limit followed by the id marker.
func (b *payloadBuilder) comment(description, sourceID string) string {
	return b.codec.Append(Truncate(description, MaxCommentDescription), sourceID)
}

func (b *payloadBuilder) transaction(kind models.Kind, date time.Time, minorUnits int64, accountID, categoryID, description, sourceID string) *ezb.NewTransaction {
	unix, offset := TransactionTime(date, b.location)
	return &ezb.NewTransaction{
		Type:            TransactionType(kind),
		Time:            unix,
		UTCOffset:       offset,
		CategoryID:      categoryID,
		TagIDs:          []string{},
		Comment:         b.comment(description, sourceID),
		SourceAccountID: accountID,
		SourceAmount:    minorUnits,
	}
}

func (b *payloadBuilder) transfer(pair *models.TransferPair, fromAccount, toAccount, categoryID, description string) *ezb.NewTransaction {
	amount := pair.MinorUnits()
	p := b.transaction(models.Transfer, pair.Date(), amount, fromAccount, categoryID, description, pair.CombinedID())
	p.DestinationAccountID = toAccount
	p.DestinationAmount = amount
	return p
}
