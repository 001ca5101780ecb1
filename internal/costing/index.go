package costing

// Tier orders the four source ledgers by authority. When the same lot
// appears in more than one ledger the earlier tier always wins; the order is
// fixed and documented rather than an accident of call sequence.
type Tier int

const (
	// TierOpeningBalance is the most authoritative source.
	TierOpeningBalance Tier = iota
	// TierPurchase covers received purchase-order lines.
	TierPurchase
	// TierProduction covers completed manufacturing runs.
	TierProduction
	// TierAudit covers manual corrections, the least authoritative source.
	TierAudit
)

// String names the tier for logs.
func (t Tier) String() string {
	switch t {
	case TierOpeningBalance:
		return "opening_balance"
	case TierPurchase:
		return "purchase"
	case TierProduction:
		return "production"
	case TierAudit:
		return "audit"
	}
	return "unknown"
}

type tierEntry struct {
	key  LotKey
	cost float64
}

// BuildCostIndex resolves one authoritative unit cost per (sku, lot) key
// from the four source ledgers. Records with an absent SKU or an absent or
// empty lot are discarded. Within a tier the first record seen for a key
// wins, except in the opening-balance tier where the higher cost wins (ties
// keep the first seen); duplicate zero-cost opening rows are common in
// migrated data. A later tier never overwrites an earlier tier's entry.
//
// The function is pure: it performs no I/O and the returned map is built
// fresh per call, which is what makes it safe to rebuild per batch instead
// of caching.
func BuildCostIndex(sources Sources) map[LotKey]float64 {
	index := make(map[LotKey]float64)

	opening := make([]tierEntry, 0, len(sources.OpeningBalances))
	for _, rec := range sources.OpeningBalances {
		opening = append(opening, tierEntry{key: NewLotKey(rec.SKU, rec.LotNumber), cost: rec.Cost})
	}
	for _, e := range opening {
		if !e.key.Valid() {
			continue
		}
		if existing, ok := index[e.key]; !ok || e.cost > existing {
			index[e.key] = e.cost
		}
	}

	seeded := make(map[LotKey]struct{}, len(index))
	for k := range index {
		seeded[k] = struct{}{}
	}

	for _, tier := range []struct {
		tier    Tier
		entries []tierEntry
	}{
		{TierPurchase, purchaseEntries(sources.PurchaseLines)},
		{TierProduction, productionEntries(sources.ProductionOutputs)},
		{TierAudit, auditEntries(sources.AuditAdjustments)},
	} {
		claimed := make(map[LotKey]struct{})
		for _, e := range tier.entries {
			if !e.key.Valid() {
				continue
			}
			if _, ok := seeded[e.key]; ok {
				continue
			}
			if _, ok := claimed[e.key]; ok {
				continue
			}
			claimed[e.key] = struct{}{}
			index[e.key] = e.cost
		}
		for k := range claimed {
			seeded[k] = struct{}{}
		}
	}

	return index
}

func purchaseEntries(lines []PurchaseLine) []tierEntry {
	entries := make([]tierEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, tierEntry{key: NewLotKey(l.SKU, l.LotNumber), cost: l.UnitCost()})
	}
	return entries
}

func productionEntries(outputs []ProductionOutput) []tierEntry {
	entries := make([]tierEntry, 0, len(outputs))
	for _, p := range outputs {
		entries = append(entries, tierEntry{key: NewLotKey(p.SKU, p.Lot()), cost: p.UnitCost()})
	}
	return entries
}

func auditEntries(adjustments []AuditAdjustment) []tierEntry {
	entries := make([]tierEntry, 0, len(adjustments))
	for _, a := range adjustments {
		entries = append(entries, tierEntry{key: NewLotKey(a.SKU, a.LotNumber), cost: a.Cost})
	}
	return entries
}
