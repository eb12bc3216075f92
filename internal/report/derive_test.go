package report_test

import (
	"math"
	"strings"
	"testing"

	"github.com/equitylist/safe-report-service/internal/report"
)

func seriesAPayload() report.Payload {
	return report.Payload{
		RoundName: "Series A",
		Timestamp: "2026-08-29 10:00",
		Summary: report.Summary{
			OwnershipPre:  "40.00%",
			OwnershipPost: "33.33%",
			PostMoney:     "$12,000,000",
			TotalRaised:   "$2,500,000",
		},
		OptionPool: "10%",
		Rows: []report.Row{
			{Name: "Founder 1", PreShares: 4_000_000, PostShares: 4_000_000, IsFounder: true},
			{Name: "Founder 2", PreShares: 3_000_000, PostShares: 3_000_000, IsFounder: true},
			{Name: "Angel SAFE", PreShares: 0, PostShares: 1_200_000, IsSafe: true, Investment: 500_000, Cap: 8_000_000, Discount: "20%", Type: "Post-money"},
			{Name: "Investor 1", PreShares: 0, PostShares: 3_999_999, IsInvestor: true, Investment: 2_000_000},
			{Name: "Option Pool", PreShares: 1_000_000, PostShares: 1_500_000, Badge: "ESOP"},
		},
	}
}

// ─── Derive — percentages ─────────────────────────────────────────────────────

func TestDerive_PostPercentagesSumTo100(t *testing.T) {
	d := report.Derive(seriesAPayload())

	var sum float64
	for _, r := range d.Rows {
		sum += r.PostPct
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("post percentages sum to %.4f, want 100 ± 0.01", sum)
	}
}

func TestDerive_PercentagesIgnoreUpstreamSummary(t *testing.T) {
	p := seriesAPayload()
	// Upstream summary strings are garbage — Derive must not read them.
	p.Summary.OwnershipPre = "999%"
	p.Summary.OwnershipPost = "bogus"

	d := report.Derive(p)
	// Founders hold 7,000,000 of 13,699,999 post-round shares.
	want := 7_000_000.0 / 13_699_999.0 * 100
	if math.Abs(d.FounderPostPct-want) > 0.01 {
		t.Errorf("FounderPostPct = %.4f, want %.4f", d.FounderPostPct, want)
	}
}

func TestDerive_ZeroTotalsDoNotDivideByZero(t *testing.T) {
	d := report.Derive(report.Payload{
		RoundName: "Seed",
		Rows:      []report.Row{{Name: "Founder", PreShares: 0, PostShares: 0, IsFounder: true}},
	})
	if d.Rows[0].PrePct != 0 || d.Rows[0].PostPct != 0 || d.FounderPostPct != 0 {
		t.Errorf("zero-share payload produced non-zero percentages: %+v", d)
	}
}

func TestDerive_Deterministic(t *testing.T) {
	p := seriesAPayload()
	a := report.Derive(p)
	b := report.Derive(p)

	if a.TotalPostShares != b.TotalPostShares || a.Interpretation != b.Interpretation {
		t.Fatal("Derive is not deterministic for identical payloads")
	}
	for i := range a.Rows {
		if a.Rows[i] != b.Rows[i] {
			t.Errorf("row %d differs between runs: %+v vs %+v", i, a.Rows[i], b.Rows[i])
		}
	}
}

// ─── Derive — chart colors ────────────────────────────────────────────────────

func TestDerive_ColorsCycleWithinCategory(t *testing.T) {
	rows := make([]report.Row, 8)
	for i := range rows {
		rows[i] = report.Row{Name: "F", PreShares: 1, PostShares: 1, IsFounder: true}
	}
	d := report.Derive(report.Payload{RoundName: "Seed", Rows: rows})

	// The founder palette has six colors; the seventh row wraps to the first.
	if d.Rows[0].Color != d.Rows[6].Color {
		t.Errorf("row 6 color %s, want palette wrap to %s", d.Rows[6].Color, d.Rows[0].Color)
	}
	if d.Rows[0].Color == d.Rows[1].Color {
		t.Error("consecutive founder rows share a color before the palette is exhausted")
	}
}

func TestDerive_CategoryAssignment(t *testing.T) {
	tests := []struct {
		name string
		row  report.Row
		want report.Category
	}{
		{"founder wins over investor", report.Row{IsFounder: true, IsInvestor: true}, report.CategoryFounder},
		{"investor", report.Row{IsInvestor: true}, report.CategoryInvestor},
		{"safe", report.Row{IsSafe: true}, report.CategorySafe},
		{"esop badge", report.Row{Badge: "ESOP"}, report.CategoryESOP},
		{"fallback", report.Row{}, report.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Category(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// ─── Derive — interpretation ─────────────────────────────────────────────────

func TestDerive_InterpretationMajorityMessage(t *testing.T) {
	d := report.Derive(seriesAPayload())
	if d.FounderPostPct >= 50 {
		t.Fatalf("fixture founders hold %.2f%%, expected a minority position", d.FounderPostPct)
	}
	if want := "Founders have dropped below 50% majority ownership."; !contains(d.Interpretation, want) {
		t.Errorf("interpretation %q missing %q", d.Interpretation, want)
	}
	if want := "1 SAFE(s) totaling $500,000 will convert."; !contains(d.Interpretation, want) {
		t.Errorf("interpretation %q missing %q", d.Interpretation, want)
	}
}

func TestDerive_InterpretationFallsBackToNA(t *testing.T) {
	p := seriesAPayload()
	p.Summary.TotalRaised = ""
	d := report.Derive(p)
	if !contains(d.Interpretation, "raising N/A") {
		t.Errorf("interpretation %q should substitute N/A for missing total raised", d.Interpretation)
	}
}

// ─── Validate ────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*report.Payload)
		wantErr bool
	}{
		{"valid", func(*report.Payload) {}, false},
		{"missing round name", func(p *report.Payload) { p.RoundName = " " }, true},
		{"no rows", func(p *report.Payload) { p.Rows = nil }, true},
		{"unnamed row", func(p *report.Payload) { p.Rows[0].Name = "" }, true},
		{"negative shares", func(p *report.Payload) { p.Rows[0].PostShares = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := seriesAPayload()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
