// Package normalize turns ragged provider records into canonical listings.
//
// It owns the three field parsers (price, year, mileage), the free-text
// extractors used when a marketplace embeds year/mileage/area inside a title
// or description, and the city gazetteer. Every function here is total:
// malformed input degrades to a nil value, never an error.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Year window accepted for a vehicle listing. Anything outside is treated
// as noise (phone numbers, prices, engine displacement, …).
const (
	minListingYear = 1900
	maxListingYear = 2030
)

var (
	// 4-digit years between 1900 and 2030, first match wins.
	yearPattern = regexp.MustCompile(`\b(19[0-9]{2}|20[0-2][0-9]|2030)\b`)

	// A number, optionally dot/comma-grouped in runs of three digits,
	// immediately followed by a mileage unit token.
	mileagePattern = regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})*|\d+)\s*(?:km|kilómetros|kilometros)`)

	// Same numeric shape followed by an area unit token. Only the
	// commercial-property marketplaces publish these.
	areaPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})*|\d+)\s*(?:m2|m²|metros|mts)`)

	kmToken    = regexp.MustCompile(`(?i)km`)
	separators = strings.NewReplacer(".", "", ",", "")
)

// ParsePrice parses a Colombian-peso price string such as "$12.345.678".
// Dots and commas are grouping separators, never decimal points: peso
// listings are always integral, so a literal decimal amount is knowingly
// misparsed. Returns nil on empty, malformed or negative input.
func ParsePrice(raw string) *float64 {
	clean := strings.TrimSpace(separators.Replace(strings.ReplaceAll(raw, "$", "")))
	if clean == "" {
		return nil
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ParseYear parses a dedicated year field. Values outside [1900, 2030]
// yield nil.
func ParseYear(raw string) *int {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || y < minListingYear || y > maxListingYear {
		return nil
	}
	return &y
}

// ParseMileage parses a dedicated mileage field such as "45.000 km":
// the km token (any case) and the grouping separators are stripped, the
// remainder must be a bare non-negative integer.
func ParseMileage(raw string) *int64 {
	clean := strings.TrimSpace(separators.Replace(kmToken.ReplaceAllString(raw, "")))
	if clean == "" {
		return nil
	}
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ExtractYear finds the first plausible 4-digit year inside free text.
// Used when a provider embeds the model year in the title rather than a
// dedicated field.
func ExtractYear(text string) *int {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

// ExtractMileage finds a number followed by km/kilómetros/kilometros inside
// free text and returns it with grouping separators stripped.
func ExtractMileage(text string) *int64 {
	return extractGrouped(mileagePattern, text)
}

// ExtractArea finds a number followed by m2/m²/metros/mts inside free text.
// Property providers store the result in the mileage column, tagged with
// model.MeasureAreaM2.
func ExtractArea(text string) *int64 {
	return extractGrouped(areaPattern, text)
}

func extractGrouped(re *regexp.Regexp, text string) *int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseInt(separators.Replace(m[1]), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
