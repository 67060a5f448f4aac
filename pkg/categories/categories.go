package categories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/models"
)

// NeutralID is the "unclassified" category. It is a valid outcome, not an error.
const NeutralID = "0"

// PathSeparator splits "Top:Sub" category paths.
const PathSeparator = ":"

type API interface {
	ListCategories(ctx context.Context) (map[ezb.CategoryType][]*ezb.Category, error)
	CreateCategory(ctx context.Context, payload *ezb.NewCategory) (*ezb.Category, error)
}

// Heuristic finds the transfer categories by name. All terms are matched
// case-insensitively as substrings.
type Heuristic struct {
	// GroupTerms must all appear in the top level category name.
	GroupTerms []string
	// BankTerms must all appear in the sub category name.
	BankTerms []string
	// ExternalTerm separates external from internal transfer categories.
	ExternalTerm string
}

func DefaultHeuristic() Heuristic {
	return Heuristic{
		GroupTerms:   []string{"allgemein", "transfer"},
		BankTerms:    []string{"bank", "weisung"},
		ExternalTerm: "extern",
	}
}

func (h Heuristic) group(name string) bool {
	return containsAll(name, h.GroupTerms)
}

func (h Heuristic) internal(name string) bool {
	return containsAll(name, h.BankTerms) && !h.externalQualified(name)
}

func (h Heuristic) external(name string) bool {
	return containsAll(name, h.BankTerms) && h.externalQualified(name)
}

func (h Heuristic) externalQualified(name string) bool {
	return h.ExternalTerm != "" && containsAll(name, []string{h.ExternalTerm})
}

type key struct {
	typ  ezb.CategoryType
	path string
}

// Resolver owns the (type, path) -> id cache for one run.
type Resolver struct {
	api          API
	logger       *log.Logger
	heuristic    Heuristic
	transferName string
	cache        map[key]string
	transferID   string
	externalIDs  map[ezb.CategoryType]string
}

// New returns a resolver. transferName is the reserved source category that
// marks transfer records; it never becomes a target category.
func New(api API, transferName string, heuristic Heuristic, logger *log.Logger) *Resolver {
	return &Resolver{
		api:          api,
		logger:       logger,
		heuristic:    heuristic,
		transferName: transferName,
		cache:        map[key]string{},
		transferID:   NeutralID,
		externalIDs: map[ezb.CategoryType]string{
			ezb.CategoryTypeIncome:  NeutralID,
			ezb.CategoryTypeExpense: NeutralID,
		},
	}
}

// LoadCategories fills the cache from the remote tree.
func (r *Resolver) LoadCategories(ctx context.Context) error {
	tree, err := r.api.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	cache := map[key]string{}
	for typ, tops := range tree {
		for _, top := range tops {
			cache[key{typ, top.Name}] = top.ID
			for _, sub := range top.SubCategories {
				cache[key{typ, top.Name + PathSeparator + sub.Name}] = sub.ID
			}
		}
	}
	r.cache = cache
	r.logger.Info("categories loaded", "count", len(cache))
	return nil
}

// LoadTransferCategories discovers the internal and external transfer
// categories. Missing ones stay at NeutralID.
func (r *Resolver) LoadTransferCategories(ctx context.Context) error {
	tree, err := r.api.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transfer categories: %w", err)
	}

	types := make([]ezb.CategoryType, 0, len(tree))
	for typ := range tree {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, typ := range types {
		for _, top := range tree[typ] {
			if !r.heuristic.group(top.Name) {
				continue
			}
			for _, sub := range top.SubCategories {
				switch {
				case r.heuristic.internal(sub.Name):
					if r.transferID == NeutralID {
						r.transferID = sub.ID
						r.logger.Debug("transfer category found", "group", top.Name, "name", sub.Name, "id", sub.ID)
					}
				case r.heuristic.external(sub.Name):
					if cur, ok := r.externalIDs[typ]; ok && cur == NeutralID {
						r.externalIDs[typ] = sub.ID
						r.logger.Debug("external transfer category found", "type", typ, "group", top.Name, "name", sub.Name, "id", sub.ID)
					}
				}
			}
		}
	}

	if r.transferID == NeutralID {
		r.logger.Warn("transfer category not found, transfers will be unclassified")
	} else {
		r.logger.Info("transfer category loaded", "id", r.transferID)
	}
	income, expense := r.externalIDs[ezb.CategoryTypeIncome], r.externalIDs[ezb.CategoryTypeExpense]
	if income == NeutralID || expense == NeutralID {
		r.logger.Warn("external transfer categories incomplete", "income", income, "expense", expense)
	} else {
		r.logger.Info("external transfer categories loaded", "income", income, "expense", expense)
	}
	return nil
}

// TransferCategoryID is the internal transfer category or NeutralID.
func (r *Resolver) TransferCategoryID() string {
	return r.transferID
}

// ExternalTransferCategory is the external transfer category for the given
// side, or NeutralID.
func (r *Resolver) ExternalTransferCategory(isIncome bool) string {
	if isIncome {
		return r.externalIDs[ezb.CategoryTypeIncome]
	}
	return r.externalIDs[ezb.CategoryTypeExpense]
}

// CategoryType maps a transaction kind to the category type it is filed under.
func CategoryType(kind models.Kind) ezb.CategoryType {
	if kind == models.Income {
		return ezb.CategoryTypeIncome
	}
	return ezb.CategoryTypeExpense
}

// EnsureHierarchy returns the id for "Top" or "Top:Sub", creating missing
// levels. Segments beyond the second are ignored. A failed top level
// creation yields NeutralID, a failed sub level the top level id.
func (r *Resolver) EnsureHierarchy(ctx context.Context, path string, kind models.Kind, stats *models.Stats) string {
	path = strings.TrimSpace(path)
	if path == "" || path == r.transferName {
		return NeutralID
	}

	typ := CategoryType(kind)
	parts := strings.Split(path, PathSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	top := parts[0]
	if top == "" {
		return NeutralID
	}

	topID, ok := r.cache[key{typ, top}]
	if !ok {
		id, err := r.create(ctx, top, typ, ezb.RootParentID)
		if err != nil {
			r.logger.Error("failed to create category", "name", top, "type", typ, "err", err)
			return NeutralID
		}
		r.cache[key{typ, top}] = id
		stats.IncCategories()
		topID = id
	}

	if len(parts) < 2 || parts[1] == "" {
		return topID
	}

	sub := parts[1]
	subKey := key{typ, top + PathSeparator + sub}
	if id, ok := r.cache[subKey]; ok {
		return id
	}
	id, err := r.create(ctx, sub, typ, topID)
	if err != nil {
		r.logger.Error("failed to create sub category", "name", subKey.path, "type", typ, "err", err)
		return topID
	}
	r.cache[subKey] = id
	stats.IncCategories()
	return id
}

func (r *Resolver) create(ctx context.Context, name string, typ ezb.CategoryType, parentID string) (string, error) {
	created, err := r.api.CreateCategory(ctx, &ezb.NewCategory{
		Name:     name,
		Type:     typ,
		ParentID: parentID,
		Icon:     ezb.DefaultCategoryIcon,
		Color:    ezb.DefaultCategoryColor,
	})
	if err != nil {
		return "", err
	}
	if created == nil || created.ID == "" {
		return "", fmt.Errorf("category %q created without id", name)
	}
	r.logger.Debug("category created", "name", name, "type", typ, "parent", parentID, "id", created.ID)
	return created.ID, nil
}

func containsAll(name string, terms []string) bool {
	lower := strings.ToLower(name)
	for _, term := range terms {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
