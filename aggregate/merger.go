package aggregate

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// joinSeparator concatenates free-text fields collected from multiple
// chunks.
const joinSeparator = " | "

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger used by the merger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Merger combines chunk fragments into one StructuredData record.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		logger: slog.Default().With("component", "aggregate"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge folds the succeeded fragments of results into a single record
// and reports how many pricing conflicts were resolved. Failed and
// skipped chunks contribute nothing. Merging zero usable fragments
// yields an empty record.
//
// Merge rules:
//   - vendor name and document type keep the most frequent non-empty
//     value, ties going to the value seen in the lowest chunk id
//   - delivery terms, payment terms, special clauses and notes join
//     all distinct values in chunk order
//   - list fields deduplicate case-insensitively, keeping first-seen
//     casing and order
//   - pricing items deduplicate on their identity key; when duplicates
//     disagree on amounts, the higher total wins and a conflict is
//     counted
func (m *Merger) Merge(results []core.ChunkResult) (*core.StructuredData, int) {
	fragments := make([]core.ChunkResult, 0, len(results))
	for _, res := range results {
		if res.Status == core.ChunkSucceeded && res.Fragment != nil {
			fragments = append(fragments, res)
		}
	}
	slices.SortFunc(fragments, func(a, b core.ChunkResult) int {
		return a.ChunkID - b.ChunkID
	})

	merged := &core.StructuredData{}
	if len(fragments) == 0 {
		return merged, 0
	}

	vendorNames := newScalarVote()
	docTypes := newScalarVote()

	var delivery, payment, clauses, notes, products []string
	deliverySeen := map[string]bool{}
	paymentSeen := map[string]bool{}
	clauseSeen := map[string]bool{}
	noteSeen := map[string]bool{}
	productSeen := map[string]bool{}

	pricingByKey := map[string]core.PricingItem{}
	var pricingOrder []string
	conflicts := 0

	var confidenceSum float32

	for _, res := range fragments {
		f := res.Fragment

		vendorNames.add(f.VendorName)
		docTypes.add(f.DocumentType)

		appendDistinct(&delivery, deliverySeen, f.DeliveryTerms)
		appendDistinct(&payment, paymentSeen, f.PaymentTerms)
		appendDistinct(&clauses, clauseSeen, f.SpecialClauses)
		appendDistinct(&notes, noteSeen, f.Notes)
		for _, p := range f.ProductsOrServices {
			appendDistinct(&products, productSeen, p)
		}

		for _, item := range f.Pricing {
			key := item.Key()
			existing, ok := pricingByKey[key]
			if !ok {
				pricingByKey[key] = item
				pricingOrder = append(pricingOrder, key)
				continue
			}
			if existing == item {
				continue
			}
			conflicts++
			if item.Total() > existing.Total() {
				pricingByKey[key] = item
			}
			m.logger.Debug("pricing conflict resolved",
				"item", item.Item,
				"kept_total", pricingByKey[key].TotalPrice)
		}

		confidenceSum += f.ConfidenceScore
	}

	merged.VendorName = vendorNames.winner()
	merged.DocumentType = docTypes.winner()
	merged.DeliveryTerms = strings.Join(delivery, joinSeparator)
	merged.PaymentTerms = strings.Join(payment, joinSeparator)
	merged.SpecialClauses = strings.Join(clauses, joinSeparator)
	merged.Notes = strings.Join(notes, joinSeparator)
	merged.ProductsOrServices = products
	merged.ConfidenceScore = confidenceSum / float32(len(fragments))

	for _, key := range pricingOrder {
		item := pricingByKey[key]
		merged.Pricing = append(merged.Pricing, item)
		merged.TotalPricing += item.Total()
	}

	return merged, conflicts
}

// scalarVote picks the most frequent non-empty value for a scalar
// field. Ties keep the value that appeared first, which after sorting
// means the lowest chunk id.
type scalarVote struct {
	counts map[string]int
	first  map[string]int
	seen   []string
	order  int
}

func newScalarVote() *scalarVote {
	return &scalarVote{
		counts: map[string]int{},
		first:  map[string]int{},
	}
}

func (v *scalarVote) add(value string) {
	value = strings.TrimSpace(value)
	v.order++
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if _, ok := v.counts[key]; !ok {
		v.first[key] = v.order
		v.seen = append(v.seen, value)
	}
	v.counts[key]++
}

func (v *scalarVote) winner() string {
	best := ""
	bestCount := 0
	bestFirst := 0
	for _, value := range v.seen {
		key := strings.ToLower(value)
		count := v.counts[key]
		if count > bestCount || (count == bestCount && v.first[key] < bestFirst) {
			best = value
			bestCount = count
			bestFirst = v.first[key]
		}
	}
	return best
}

func appendDistinct(dst *[]string, seen map[string]bool, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if seen[key] {
		return
	}
	seen[key] = true
	*dst = append(*dst, value)
}
