package normalize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// defaultCities is the built-in gazetteer of Colombian cities the location
// resolver recognizes. Order matters: the first (case-insensitive) substring
// match wins.
var defaultCities = []string{
	"Bogotá", "Medellín", "Cali", "Barranquilla", "Cartagena",
	"Bucaramanga", "Pereira", "Manizales", "Armenia", "Ibagué",
	"Villavicencio", "Pasto", "Cúcuta", "Montería", "Neiva",
}

// Gazetteer resolves free-text marketplace location strings ("Zona Norte,
// Bogotá D.C.") to a canonical city name.
type Gazetteer struct {
	cities []string
}

// NewGazetteer returns a Gazetteer over the given city list, or over the
// built-in Colombian list when cities is empty.
func NewGazetteer(cities []string) *Gazetteer {
	if len(cities) == 0 {
		cities = defaultCities
	}
	return &Gazetteer{cities: cities}
}

// LoadGazetteer reads a YAML file of the form
//
//	cities:
//	  - Bogotá
//	  - Medellín
//
// and returns a Gazetteer over it. An empty path returns the built-in list.
func LoadGazetteer(path string) (*Gazetteer, error) {
	if path == "" {
		return NewGazetteer(nil), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}

	var doc struct {
		Cities []string `yaml:"cities"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cities file: %w", err)
	}
	if len(doc.Cities) == 0 {
		return nil, fmt.Errorf("cities file %s lists no cities", path)
	}

	return NewGazetteer(doc.Cities), nil
}

// Resolve maps a raw location string to a city name. A known city mentioned
// anywhere in the string wins; otherwise the text before the first comma is
// used; an empty location falls back to defaultCity (the city the search
// was scoped to).
func (g *Gazetteer) Resolve(location, defaultCity string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return defaultCity
	}

	lower := strings.ToLower(loc)
	for _, city := range g.cities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city
		}
	}

	if i := strings.Index(loc, ","); i >= 0 {
		return strings.TrimSpace(loc[:i])
	}
	return loc
}
