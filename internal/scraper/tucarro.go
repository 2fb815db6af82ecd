package scraper

import (
	"context"
	"fmt"

	"carscan/search-service/internal/model"
)

const tuCarroBaseURL = "https://vehiculos.tucarro.com.co"

// TuCarro scrapes TuCarro, MercadoLibre's dedicated vehicle marketplace.
// The site shares MercadoLibre's frontend stack but is mid-migration to a
// newer card layout, so the extraction script tries several selector
// generations before giving up on a card.
type TuCarro struct {
	opts Options
}

func NewTuCarro(opts Options) *TuCarro {
	return &TuCarro{opts: opts}
}

func (t *TuCarro) Name() string { return "TuCarro" }

func (t *TuCarro) FetchRaw(ctx context.Context, query, _ string) ([]model.RawListing, error) {
	cards, err := extractCards(ctx, t.searchURL(query), tuCarroExtractJS, t.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("tucarro: %w", err)
	}

	raw := make([]model.RawListing, 0, len(cards))
	for _, c := range cards {
		if c.Title == "" {
			continue
		}
		raw = append(raw, model.RawListing{
			Source:   t.Name(),
			Title:    c.Title,
			Price:    c.Price,
			FreeText: c.Title + " " + c.Attributes,
			Location: c.Location,
			URL:      c.URL,
			Kind:     model.MeasureDistanceKM,
		})
	}
	politeDelay(ctx, t.opts)
	return capListings(raw, t.opts.MaxListings), nil
}

func (t *TuCarro) searchURL(query string) string {
	return fmt.Sprintf("%s/%s", tuCarroBaseURL, querySlug(query))
}

const tuCarroExtractJS = `
	(function() {
		var items = [];
		var cardSelectors = [
			'.ui-search-layout__item',
			'.ui-search-result',
			'.poly-card',
			'.ui-search-result__content-wrapper'
		];
		var cards = [];
		for (var s = 0; s < cardSelectors.length; s++) {
			cards = document.querySelectorAll(cardSelectors[s]);
			if (cards.length > 0) break;
		}

		function firstText(card, selectors) {
			for (var i = 0; i < selectors.length; i++) {
				var elem = card.querySelector(selectors[i]);
				if (elem) return elem.innerText;
			}
			return '';
		}
		function firstHref(card, selectors) {
			for (var i = 0; i < selectors.length; i++) {
				var elem = card.querySelector(selectors[i]);
				if (elem && elem.href) return elem.href;
			}
			return '';
		}

		for (var i = 0; i < cards.length; i++) {
			var card = cards[i];
			try {
				items.push({
					title: firstText(card, [
						'h2.ui-search-item__title',
						'.ui-search-item__title',
						'.poly-component__title',
						'h2.poly-box',
						'a.ui-search-link h2'
					]),
					price: firstText(card, [
						'.andes-money-amount__fraction',
						'.price-tag-fraction',
						'.poly-price__current .andes-money-amount__fraction',
						'.ui-search-price__second-line .andes-money-amount__fraction'
					]),
					url: firstHref(card, [
						'a.ui-search-link',
						'a.ui-search-item__group__element',
						'a.poly-component__link',
						'a[href*="/MCO"]'
					]),
					location: firstText(card, [
						'.ui-search-item__group--location',
						'.ui-search-item__location',
						'.poly-component__location'
					]),
					attributes: firstText(card, [
						'.ui-search-item__group--attributes',
						'.poly-attributes-list',
						'.ui-search-item__subtitle'
					])
				});
			} catch (e) {
				// Skip malformed cards.
			}
		}
		return items;
	})()
`
