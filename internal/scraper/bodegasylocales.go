package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carscan/search-service/internal/model"
)

const bodegasBaseURL = "https://www.bodegasylocales.com"

// BodegasYLocales scrapes warehouse and retail-space listings from
// bodegasylocales.com. The search results are server-rendered, so a plain
// HTTP GET plus an HTML parse is enough — no headless browser involved.
type BodegasYLocales struct {
	opts    Options
	client  *http.Client
	baseURL string
}

func NewBodegasYLocales(opts Options) *BodegasYLocales {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BodegasYLocales{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: bodegasBaseURL,
	}
}

func (b *BodegasYLocales) Name() string { return "BodegasYLocales" }

func (b *BodegasYLocales) FetchRaw(ctx context.Context, query, city string) ([]model.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.searchURL(query, city), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-CO,es;q=0.9,en;q=0.8")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bodegasylocales: http GET: %w", err)
	}
	defer resp.Body.Close()

	// The site occasionally rate-limits scrapers; treat that as "no results
	// this round" rather than a provider failure.
	if resp.StatusCode == http.StatusForbidden {
		log.Printf("[scraper] bodegasylocales returned 403 for query %q — skipping", query)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bodegasylocales returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bodegasylocales: parse html: %w", err)
	}

	politeDelay(ctx, b.opts)
	return capListings(b.parseListings(doc), b.opts.MaxListings), nil
}

func (b *BodegasYLocales) searchURL(query, city string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("ciudad", citySlug(city))
	return b.baseURL + "/buscar?" + params.Encode()
}

// parseListings walks the result cards in a parsed search page. Split from
// FetchRaw so the extraction rules can be exercised against static HTML.
func (b *BodegasYLocales) parseListings(doc *goquery.Document) []model.RawListing {
	base, _ := url.Parse(b.baseURL)

	cardSelectors := []string{".property-card", ".listing-item", ".result-item", ".property-listing", "[data-property]"}
	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}

	var raw []model.RawListing
	cards.Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, "h2", "h3", ".title", ".property-title")
		href, _ := card.Find(`a[href*="/propiedad/"], a[href*="/inmueble/"], a`).First().Attr("href")
		link := resolveHref(base, href)
		if title == "" && link == "" {
			return
		}

		price := firstText(card, ".price", ".property-price", "[data-price]")
		location := firstText(card, ".location", ".address", ".property-location")
		area := firstText(card, ".area", ".size", "[data-area]")
		allText := strings.Join(strings.Fields(card.Text()), " ")

		raw = append(raw, model.RawListing{
			Source:   b.Name(),
			Title:    title,
			Price:    price,
			FreeText: title + " " + area + " " + allText,
			Location: location,
			URL:      link,
			Kind:     model.MeasureAreaM2,
		})
	})
	return raw
}

// firstText returns the trimmed text of the first selector that matches
// something non-empty inside s.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// resolveHref absolutizes a card link against the site base URL.
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
