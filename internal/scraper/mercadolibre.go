package scraper

import (
	"context"
	"fmt"

	"carscan/search-service/internal/model"
)

const mercadoLibreBaseURL = "https://carros.mercadolibre.com.co"

// MercadoLibre scrapes vehicle listings from MercadoLibre Colombia's car
// vertical. Search pages are JavaScript-rendered, so results are pulled out
// of the live DOM in a headless browser.
type MercadoLibre struct {
	opts Options
}

func NewMercadoLibre(opts Options) *MercadoLibre {
	return &MercadoLibre{opts: opts}
}

func (m *MercadoLibre) Name() string { return "MercadoLibre" }

func (m *MercadoLibre) FetchRaw(ctx context.Context, query, _ string) ([]model.RawListing, error) {
	cards, err := extractCards(ctx, m.searchURL(query), mercadoLibreExtractJS, m.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("mercadolibre: %w", err)
	}

	raw := make([]model.RawListing, 0, len(cards))
	for _, c := range cards {
		raw = append(raw, model.RawListing{
			Source:   m.Name(),
			Title:    c.Title,
			Price:    c.Price,
			FreeText: c.Title + " " + c.Attributes,
			Location: c.Location,
			URL:      c.URL,
			Kind:     model.MeasureDistanceKM,
		})
	}
	politeDelay(ctx, m.opts)
	return capListings(raw, m.opts.MaxListings), nil
}

// searchURL maps a query to the cars vertical; the _NoIndex_True suffix asks
// for the plain listing page.
func (m *MercadoLibre) searchURL(query string) string {
	return fmt.Sprintf("%s/%s_NoIndex_True", mercadoLibreBaseURL, querySlug(query))
}

const mercadoLibreExtractJS = `
	(function() {
		var items = [];
		var cards = document.querySelectorAll('.ui-search-result');
		for (var i = 0; i < cards.length; i++) {
			var card = cards[i];
			try {
				var titleElem = card.querySelector('h2.ui-search-item__title, .ui-search-item__title');
				var priceElem = card.querySelector('.andes-money-amount__fraction, .price-tag-fraction');
				var linkElem = card.querySelector('a.ui-search-link, a.ui-search-item__group__element');
				var locationElem = card.querySelector('.ui-search-item__group--location, .ui-search-item__location');
				var attrElem = card.querySelector('.ui-search-item__group--attributes');

				items.push({
					title: titleElem ? titleElem.innerText : '',
					price: priceElem ? priceElem.innerText : '',
					url: linkElem ? linkElem.href : '',
					location: locationElem ? locationElem.innerText : '',
					attributes: attrElem ? attrElem.innerText : ''
				});
			} catch (e) {
				// Skip malformed cards.
			}
		}
		return items;
	})()
`
