package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"time"

	"carscan/search-service/internal/model"
)

// VendeTuNave bridges to an external helper binary that scrapes
// vendetunave.co. The helper writes a JSON array of listings to stdout;
// everything else it prints goes to stderr. If no binary path is configured
// the provider is disabled and fetches return empty without error.
type VendeTuNave struct {
	bin     string
	timeout time.Duration
	opts    Options

	// run is swapped out in tests to avoid spawning real processes.
	run func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

// bridgeListing mirrors the helper's stdout schema. Numeric fields arrive
// already parsed; they are converted back to strings so every provider feeds
// the same normalization path.
type bridgeListing struct {
	Title   string  `json:"title"`
	Price   *string `json:"price"`
	Year    *int    `json:"year"`
	Mileage *int64  `json:"mileage"`
	City    *string `json:"city"`
	URL     string  `json:"url"`
}

func NewVendeTuNave(bin string, timeout time.Duration, opts Options) *VendeTuNave {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VendeTuNave{bin: bin, timeout: timeout, opts: opts, run: runHelper}
}

func (v *VendeTuNave) Name() string { return "VendeTuNave" }

func (v *VendeTuNave) FetchRaw(ctx context.Context, query, _ string) ([]model.RawListing, error) {
	if v.bin == "" {
		log.Println("[scraper] VENDETUNAVE_BIN not set — skipping vendetunave")
		return nil, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	args := []string{"--query", query}
	if v.opts.MaxListings > 0 {
		args = append(args, "--max-results", strconv.Itoa(v.opts.MaxListings))
	}

	out, runErr := v.run(runCtx, v.bin, args...)

	// The helper may exit nonzero after printing usable results (a late page
	// failed, say). Salvage stdout first and only report the run error when
	// there is nothing to show for it.
	listings := decodeBridgeOutput(out)
	if len(listings) == 0 && runErr != nil {
		return nil, fmt.Errorf("vendetunave helper: %w", runErr)
	}
	if runErr != nil {
		log.Printf("[scraper] vendetunave helper exited with error after producing %d listings: %v", len(listings), runErr)
	}

	raw := make([]model.RawListing, 0, len(listings))
	for _, bl := range listings {
		rl := model.RawListing{
			Source: v.Name(),
			Title:  bl.Title,
			URL:    bl.URL,
			Kind:   model.MeasureDistanceKM,
		}
		if bl.Price != nil {
			rl.Price = *bl.Price
		}
		if bl.Year != nil {
			rl.Year = strconv.Itoa(*bl.Year)
		}
		if bl.Mileage != nil {
			rl.Mileage = strconv.FormatInt(*bl.Mileage, 10)
		}
		if bl.City != nil {
			rl.City = *bl.City
		}
		raw = append(raw, rl)
	}
	return capListings(raw, v.opts.MaxListings), nil
}

// decodeBridgeOutput parses the helper's stdout. Empty output or anything
// that is not a JSON array decodes to zero listings — the helper prints
// diagnostics to stderr, but a crashed run can still splatter stdout.
func decodeBridgeOutput(out []byte) []bridgeListing {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil
	}
	var listings []bridgeListing
	if err := json.Unmarshal(trimmed, &listings); err != nil {
		log.Printf("[scraper] vendetunave helper produced unparseable output: %v", err)
		return nil
	}
	return listings
}

func runHelper(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), err
}
