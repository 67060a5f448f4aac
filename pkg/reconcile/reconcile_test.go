package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
)

type fakeLister struct {
	txs []*ezb.Transaction
	err error
}

func (f *fakeLister) ListAllTransactions(ctx context.Context) ([]*ezb.Transaction, error) {
	return f.txs, f.err
}

func newLedger(api Lister) *Ledger {
	return New(api, marker.Must(marker.TransactionTag), log.Default())
}

func TestLoadExistingIDs(t *testing.T) {
	api := &fakeLister{txs: []*ezb.Transaction{
		{ID: "1", Comment: "Rent March [SourceID:A]"},
		{ID: "2", Comment: "Transfer: savings [SourceID:B_C]"},
		{ID: "3", Comment: "manual entry"},
		{ID: "4", Comment: "broken [SourceID:"},
		{ID: "5", Comment: "[SourceID:]"},
		{ID: "6", Comment: ""},
	}}

	set := newLedger(api).LoadExistingIDs(context.Background())

	assert.True(t, set.Has("A"))
	assert.True(t, set.Has("B"))
	assert.True(t, set.Has("C"))
	assert.False(t, set.Has("manual entry"))
	assert.Equal(t, Synced, set.Status("C"))
	assert.Equal(t, ToAdd, set.Status("D"))
}

func TestMarkerRoundTrip(t *testing.T) {
	codec := marker.Must(marker.TransactionTag)

	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"single", "A", []string{"A"}},
		{"combined", "A_B", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeLister{txs: []*ezb.Transaction{{Comment: codec.Append("some text", tt.value)}}}
			set := newLedger(api).LoadExistingIDs(context.Background())
			assert.Equal(t, tt.want, set.IDs())
		})
	}
}

func TestLoadExistingIDsFailure(t *testing.T) {
	set := newLedger(&fakeLister{err: errors.New("timeout")}).LoadExistingIDs(context.Background())
	assert.NotNil(t, set)
	assert.Equal(t, 0, set.Len())
}

func TestIDSetGrows(t *testing.T) {
	set := NewIDSet("a")
	set.Add("b", "", "c")
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"a", "b", "c"}, set.IDs())
	assert.Equal(t, "synced", set.Status("a").String())
	assert.Equal(t, "to_add", set.Status("z").String())
}
