package report

import (
	"fmt"
	"strconv"
	"strings"
)

// ─── PALETTES ─────────────────────────────────────────────────────────────────

// categoryPalettes are the brand chart colors per category. A category with
// more rows than colors cycles back to the start of its palette, so color
// assignment is a pure function of category and occurrence index.
var categoryPalettes = map[Category][]string{
	CategoryFounder:  {"#5F17EA", "#7C3AED", "#9333EA", "#A855F7", "#C084FC", "#D8B4FE"},
	CategoryInvestor: {"#3B82F6", "#60A5FA", "#93C5FD", "#BFDBFE", "#2563EB", "#1D4ED8"},
	CategorySafe:     {"#10B981", "#34D399", "#6EE7B7", "#A7F3D0"},
	CategoryESOP:     {"#FACC15", "#FDE047", "#FEF08A"},
	CategoryOther:    {"#64748B", "#94A3B8", "#CBD5E1"},
}

// ─── DERIVED FIGURES ─────────────────────────────────────────────────────────

// RowFigures is the recomputed per-row view consumed by the templates.
type RowFigures struct {
	Name    string   `json:"name"`
	PrePct  float64  `json:"prePct"`
	PostPct float64  `json:"postPct"`
	Color   string   `json:"color"`
	Cat     Category `json:"category"`
}

// Derived holds everything recomputed from row data. It is serialized into
// the page-global reportData alongside the raw payload so the templates
// never have to redo this arithmetic.
type Derived struct {
	TotalPreShares  int64 `json:"totalPreShares"`
	TotalPostShares int64 `json:"totalPostShares"`

	Rows []RowFigures `json:"rows"`

	// FounderPostPct is the summed post-round founder ownership, used for
	// the majority-ownership interpretation and the before/after bar chart.
	FounderPostPct float64 `json:"founderPostPct"`

	SafeCount           int    `json:"safeCount"`
	TotalSafeInvestment int64  `json:"totalSafeInvestment"`
	Interpretation      string `json:"interpretation"`
}

// Derive recomputes all percentages, totals, chart colors, and the
// interpretation text from row data. It is deterministic: the same payload
// always yields the same Derived value.
func Derive(p Payload) Derived {
	var d Derived

	for _, r := range p.Rows {
		d.TotalPreShares += r.PreShares
		d.TotalPostShares += r.PostShares
		if r.IsSafe {
			d.SafeCount++
			d.TotalSafeInvestment += r.Investment
		}
	}

	counters := map[Category]int{}
	d.Rows = make([]RowFigures, len(p.Rows))
	var founderPost int64
	for i, r := range p.Rows {
		cat := r.Category()
		palette := categoryPalettes[cat]
		color := palette[counters[cat]%len(palette)]
		counters[cat]++

		d.Rows[i] = RowFigures{
			Name:    r.Name,
			PrePct:  pct(r.PreShares, d.TotalPreShares),
			PostPct: pct(r.PostShares, d.TotalPostShares),
			Color:   color,
			Cat:     cat,
		}
		if r.IsFounder {
			founderPost += r.PostShares
		}
	}

	d.FounderPostPct = pct(founderPost, d.TotalPostShares)
	d.Interpretation = interpretation(p, d)
	return d
}

// pct returns part/total as a percentage, 0 when total is 0.
func pct(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ─── INTERPRETATION ──────────────────────────────────────────────────────────

// interpretation builds the narrative paragraphs shown on the terms page.
func interpretation(p Payload, d Derived) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are modeling a %s round raising %s at a %s post-money valuation. ",
		p.RoundName, orNA(p.Summary.TotalRaised), orNA(p.Summary.PostMoney))
	fmt.Fprintf(&b, "Founder ownership changes from %s to %.2f%% post-round. ",
		orNA(p.Summary.OwnershipPre), d.FounderPostPct)

	if d.SafeCount > 0 {
		fmt.Fprintf(&b, "%d SAFE(s) totaling %s will convert. ",
			d.SafeCount, formatAmount(d.TotalSafeInvestment))
	}

	if d.FounderPostPct < 50 {
		b.WriteString("Founders have dropped below 50% majority ownership.")
	} else {
		b.WriteString("Founders maintain majority ownership.")
	}

	if p.OptionPool != "" {
		fmt.Fprintf(&b, " The model includes an option pool top-up to reach the target of %s.",
			p.OptionPool)
	}

	return b.String()
}

// orNA substitutes "N/A" for empty summary fields.
func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// formatAmount renders a dollar amount with thousands separators,
// e.g. 2500000 → "$2,500,000".
func formatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
