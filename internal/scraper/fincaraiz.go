package scraper

import (
	"context"
	"fmt"
	"strings"

	"carscan/search-service/internal/model"
)

const fincaRaizBaseURL = "https://www.fincaraiz.com.co"

// FincaRaiz scrapes commercial-property rentals from FincaRaíz. Listings are
// measured in square metres rather than kilometres, so every record carries
// MeasureAreaM2 and the card's area and feature text is folded into the
// attributes blob for the normalizer to mine.
type FincaRaiz struct {
	opts Options
}

func NewFincaRaiz(opts Options) *FincaRaiz {
	return &FincaRaiz{opts: opts}
}

func (f *FincaRaiz) Name() string { return "FincaRaiz" }

func (f *FincaRaiz) FetchRaw(ctx context.Context, query, city string) ([]model.RawListing, error) {
	cards, err := extractCards(ctx, f.searchURL(query, city), fincaRaizExtractJS, f.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("fincaraiz: %w", err)
	}

	raw := make([]model.RawListing, 0, len(cards))
	for _, c := range cards {
		if c.Title == "" && c.URL == "" {
			continue
		}
		raw = append(raw, model.RawListing{
			Source:   f.Name(),
			Title:    c.Title,
			Price:    c.Price,
			FreeText: c.Title + " " + c.Attributes,
			Location: c.Location,
			URL:      c.URL,
			Kind:     model.MeasureAreaM2,
		})
	}
	politeDelay(ctx, f.opts)
	return capListings(raw, f.opts.MaxListings), nil
}

// searchURL routes warehouse queries to the dedicated bodegas vertical;
// everything else goes through the generic rental path.
func (f *FincaRaiz) searchURL(query, city string) string {
	if strings.Contains(strings.ToLower(query), "bodega") {
		return fmt.Sprintf("%s/arriendo/bodegas/%s", fincaRaizBaseURL, citySlug(city))
	}
	return fmt.Sprintf("%s/arriendo/%s/%s", fincaRaizBaseURL, querySlug(query), citySlug(city))
}

const fincaRaizExtractJS = `
	(function() {
		var items = [];
		var cardSelectors = [
			'.MuiCard-root',
			'.listingCard',
			'.property-card',
			'article[data-testid]',
			'[data-listing-id]',
			'.listing-card'
		];
		var cards = [];
		for (var s = 0; s < cardSelectors.length; s++) {
			cards = document.querySelectorAll(cardSelectors[s]);
			if (cards.length > 0) break;
		}

		for (var i = 0; i < cards.length; i++) {
			var card = cards[i];
			try {
				var titleElem = card.querySelector('h2, h3, .title, [class*="title"], [class*="Title"]');
				var priceElem = card.querySelector('[class*="price"], [class*="Price"], .price, span[class*="amount"]');
				var linkElem = card.querySelector('a[href*="/inmueble/"], a[href*="/bodega/"], a');
				var locationElem = card.querySelector('[class*="location"], [class*="address"], .location, .address');
				var areaElem = card.querySelector('[class*="area"], [class*="size"], .area');
				var featuresElem = card.querySelector('[class*="features"], [class*="amenities"]');

				var area = areaElem ? areaElem.innerText.trim() : '';
				var features = featuresElem ? featuresElem.innerText.trim() : '';
				var allText = card.innerText || '';

				items.push({
					title: titleElem ? titleElem.innerText.trim() : '',
					price: priceElem ? priceElem.innerText.trim() : '',
					url: linkElem ? linkElem.href : '',
					location: locationElem ? locationElem.innerText.trim() : '',
					attributes: area + ' ' + features + ' ' + allText
				});
			} catch (e) {
				// Skip malformed cards.
			}
		}
		return items;
	})()
`
