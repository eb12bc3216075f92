// Command smoketest exercises a running report server end to end: it posts a
// canned Series A payload to /generate-pdf, writes the merged document to
// disk, and — when -to is given — sends it through /send-email and polls the
// delivery status until it settles.
//
// Usage:
//
//	go run ./cmd/smoketest -addr http://localhost:3005 [-to you@example.com]
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:3005", "base URL of the report server")
	to := flag.String("to", "", "also deliver the report to this address")
	out := flag.String("out", "report.pdf", "where to write the generated document")
	flag.Parse()

	if err := run(*addr, *to, *out); err != nil {
		fmt.Fprintln(os.Stderr, "smoketest:", err)
		os.Exit(1)
	}
}

func run(addr, to, out string) error {
	client := &http.Client{Timeout: 3 * time.Minute}

	// ── Generate ──────────────────────────────────────────────────────────────
	var genResp struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		PDFBase64 string `json:"pdfBase64"`
	}
	if err := post(client, addr+"/generate-pdf", map[string]any{
		"reportData": samplePayload(),
	}, &genResp); err != nil {
		return fmt.Errorf("generate-pdf: %w", err)
	}
	if !genResp.Success {
		return fmt.Errorf("generate-pdf rejected: %s", genResp.Message)
	}

	doc, err := base64.StdEncoding.DecodeString(genResp.PDFBase64)
	if err != nil {
		return fmt.Errorf("generate-pdf: decode: %w", err)
	}
	if err := os.WriteFile(out, doc, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(doc))

	if to == "" {
		return nil
	}

	// ── Send ──────────────────────────────────────────────────────────────────
	var sendResp struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		DeliveryID string `json:"deliveryId"`
	}
	if err := post(client, addr+"/send-email", map[string]any{
		"to_email":  to,
		"pdfBase64": genResp.PDFBase64,
		"summaryData": map[string]any{
			"firstName":        "Smoke",
			"founderOwnership": "51.09%",
			"postMoney":        "$13,699,999",
			"totalRaised":      "$3,199,999",
		},
	}, &sendResp); err != nil {
		return fmt.Errorf("send-email: %w", err)
	}
	if !sendResp.Success {
		return fmt.Errorf("send-email rejected: %s", sendResp.Message)
	}
	fmt.Println(sendResp.Message)

	// Sync mode carries the final outcome in the response and returns no ID.
	if sendResp.DeliveryID == "" {
		return nil
	}

	// ── Poll ──────────────────────────────────────────────────────────────────
	deadline := time.Now().Add(2 * time.Minute)
	for {
		var status struct {
			State string `json:"state"`
			Error string `json:"error"`
		}
		if err := get(client, addr+"/delivery/"+sendResp.DeliveryID, &status); err != nil {
			return fmt.Errorf("delivery status: %w", err)
		}
		switch status.State {
		case "sent":
			fmt.Println("delivery sent")
			return nil
		case "failed":
			return fmt.Errorf("delivery failed: %s", status.Error)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("delivery still %q after 2m", status.State)
		}
		time.Sleep(2 * time.Second)
	}
}

func post(client *http.Client, url string, body any, into any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(into)
}

func get(client *http.Client, url string, into any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

// samplePayload mirrors the cap table the calculator frontend produces for a
// typical Series A with two prior SAFEs and an option pool refresh.
func samplePayload() map[string]any {
	return map[string]any{
		"roundName": "Series A",
		"summary": map[string]any{
			"ownershipPre":  "70.00%",
			"ownershipPost": "51.09%",
			"postMoney":     "$13,699,999",
			"totalRaised":   "$3,199,999",
		},
		"optionPool": "10.95%",
		"safeAmount": "$1,200,000",
		"rows": []map[string]any{
			{"name": "Founder 1", "preShares": 4000000, "postShares": 4000000, "isFounder": true},
			{"name": "Founder 2", "preShares": 3000000, "postShares": 3000000, "isFounder": true},
			{"name": "Angel SAFE", "preShares": 0, "postShares": 1200000, "isSafe": true,
				"investment": 1200000, "cap": 8000000, "discount": 20, "type": "Post-Money SAFE"},
			{"name": "Series A Lead", "preShares": 0, "postShares": 3999999, "isInvestor": true,
				"investment": 2000000},
			{"name": "Option Pool", "preShares": 0, "postShares": 1500000, "badge": "ESOP"},
		},
	}
}
