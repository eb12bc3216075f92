// Package report defines the computed financial snapshot a client submits
// for rendering and the figures derived from it. Everything here is plain
// arithmetic over the payload — the package has no dependencies so that the
// render, dispatch, and api packages can all consume it freely.
//
// Percentages are always recomputed from row share counts. The upstream
// calculator also sends formatted percentage strings in Summary, but those
// are display hints only and are never trusted for the table or charts.
package report

import (
	"errors"
	"fmt"
	"strings"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Payload is the computed SAFE-conversion snapshot to render. Field names
// match the JSON the frontend calculator already produces.
type Payload struct {
	RoundName string `json:"roundName"`
	Timestamp string `json:"timestamp"`
	Summary   Summary `json:"summary"`
	Rows      []Row   `json:"rows"`

	// OptionPool is the formatted option-pool target, e.g. "10%".
	OptionPool string `json:"optionPool,omitempty"`

	// SafeAmount is the formatted aggregate SAFE investment, e.g. "$500,000".
	SafeAmount string `json:"safeAmount,omitempty"`
}

// Summary holds the headline metrics as pre-formatted display strings.
type Summary struct {
	OwnershipPre  string `json:"ownershipPre"`
	OwnershipPost string `json:"ownershipPost"`
	Dilution      string `json:"dilution,omitempty"`
	PostMoney     string `json:"postMoney"`
	PricePerShare string `json:"pricePerShare,omitempty"`
	TotalShares   string `json:"totalShares,omitempty"`
	TotalRaised   string `json:"totalRaised,omitempty"`
}

// Row is one capitalization-table line item. The SAFE term fields
// (Investment through Type) are only populated when IsSafe is true.
type Row struct {
	Name       string `json:"name"`
	PreShares  int64  `json:"preShares"`
	PostShares int64  `json:"postShares"`

	IsFounder  bool `json:"isFounder,omitempty"`
	IsInvestor bool `json:"isInvestor,omitempty"`
	IsSafe     bool `json:"isSafe,omitempty"`

	// Badge is an optional label rendered next to the name, e.g. "ESOP".
	Badge      string `json:"badge,omitempty"`
	BadgeStyle string `json:"badgeStyle,omitempty"`

	Investment int64  `json:"investment,omitempty"`
	Cap        int64  `json:"cap,omitempty"`
	Discount   string `json:"discount,omitempty"`
	Type       string `json:"type,omitempty"` // "Pre-money" | "Post-money"
}

// Category buckets a row for chart coloring. Values match the legend labels
// the templates display.
type Category string

const (
	CategoryFounder  Category = "Founder"
	CategoryInvestor Category = "Investor"
	CategorySafe     Category = "SAFE Converter"
	CategoryESOP     Category = "ESOP"
	CategoryOther    Category = "Other"
)

// Category classifies a row. Order matters: a row flagged as both founder
// and investor counts as founder, matching the chart legend.
func (r Row) Category() Category {
	switch {
	case r.IsFounder:
		return CategoryFounder
	case r.IsInvestor:
		return CategoryInvestor
	case r.IsSafe:
		return CategorySafe
	case r.Badge == "ESOP":
		return CategoryESOP
	default:
		return CategoryOther
	}
}

// ─── VALIDATION ──────────────────────────────────────────────────────────────

// ErrInvalidPayload is wrapped by every Validate failure.
var ErrInvalidPayload = errors.New("report: invalid payload")

// Validate checks the minimal shape a payload needs before it can be
// rendered. It deliberately does not check the formatted summary strings —
// missing ones fall back to "N/A" downstream.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.RoundName) == "" {
		return fmt.Errorf("%w: missing roundName", ErrInvalidPayload)
	}
	if len(p.Rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidPayload)
	}
	for i, r := range p.Rows {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: row %d has no name", ErrInvalidPayload, i)
		}
		if r.PreShares < 0 || r.PostShares < 0 {
			return fmt.Errorf("%w: row %q has negative share count", ErrInvalidPayload, r.Name)
		}
	}
	return nil
}
