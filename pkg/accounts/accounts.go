package accounts

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/marker"
)

type Lister interface {
	ListAccounts(ctx context.Context) ([]*ezb.Account, error)
}

// Resolver maps source account ids to target account ids. The mapping is
// read from a marker in each target account's comment.
type Resolver struct {
	api     Lister
	codec   *marker.Codec
	logger  *log.Logger
	mapping map[string]string
	names   map[string]string
}

func New(api Lister, codec *marker.Codec, logger *log.Logger) *Resolver {
	return &Resolver{
		api:     api,
		codec:   codec,
		logger:  logger,
		mapping: map[string]string{},
		names:   map[string]string{},
	}
}

// Load builds the mapping once. On failure the mapping stays empty.
func (r *Resolver) Load(ctx context.Context) error {
	accounts, err := r.api.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	mapping := map[string]string{}
	names := map[string]string{}
	for _, acc := range flatten(accounts) {
		sourceID, ok := r.codec.Extract(acc.Comment)
		if !ok {
			continue
		}
		if prev, dup := mapping[sourceID]; dup {
			r.logger.Warn("source account mapped twice, keeping first", "source", sourceID, "kept", prev, "ignored", acc.ID)
			continue
		}
		mapping[sourceID] = acc.ID
		names[sourceID] = acc.Name
		r.logger.Debug("account mapped", "source", sourceID, "target", acc.ID, "name", acc.Name)
	}

	r.mapping = mapping
	r.names = names
	if len(mapping) == 0 {
		r.logger.Warn("no target account carries a source account marker", "tag", r.codec.Tag())
	} else {
		r.logger.Info("accounts mapped", "count", len(mapping))
	}
	return nil
}

func (r *Resolver) Has(sourceID string) bool {
	_, ok := r.mapping[sourceID]
	return ok
}

func (r *Resolver) Resolve(sourceID string) (string, bool) {
	id, ok := r.mapping[sourceID]
	return id, ok
}

// Name returns the target account display name for a source id.
func (r *Resolver) Name(sourceID string) string {
	return r.names[sourceID]
}

func (r *Resolver) Len() int {
	return len(r.mapping)
}

// SourceIDs lists the mapped source account ids in sorted order.
func (r *Resolver) SourceIDs() []string {
	ids := make([]string, 0, len(r.mapping))
	for id := range r.mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func flatten(accounts []*ezb.Account) []*ezb.Account {
	var out []*ezb.Account
	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		out = append(out, acc)
		out = append(out, flatten(acc.SubAccounts)...)
	}
	return out
}
