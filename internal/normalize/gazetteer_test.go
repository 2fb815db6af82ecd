package normalize_test

import (
	"os"
	"path/filepath"
	"testing"

	"carscan/search-service/internal/normalize"
)

// ── Resolve ────────────────────────────────────────────────────────────────

func TestResolve_KnownCitySubstring(t *testing.T) {
	gaz := normalize.NewGazetteer(nil)
	cases := []struct {
		location string
		want     string
	}{
		{"Zona Norte, Bogotá D.C.", "Bogotá"},
		{"medellín - el poblado", "Medellín"},
		{"Barrio Granada, Cali", "Cali"},
		{"Villavicencio, Meta", "Villavicencio"},
	}
	for _, c := range cases {
		if got := gaz.Resolve(c.location, "Pereira"); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.location, got, c.want)
		}
	}
}

func TestResolve_UnknownCityTakesTextBeforeComma(t *testing.T) {
	gaz := normalize.NewGazetteer(nil)
	if got := gaz.Resolve("El Poblado, Sector 2", "Bogotá"); got != "El Poblado" {
		t.Errorf("Resolve = %q, want %q", got, "El Poblado")
	}
}

func TestResolve_UnknownCityNoComma(t *testing.T) {
	gaz := normalize.NewGazetteer(nil)
	if got := gaz.Resolve("Envigado", "Bogotá"); got != "Envigado" {
		t.Errorf("Resolve = %q, want %q", got, "Envigado")
	}
}

func TestResolve_EmptyLocationFallsBackToDefault(t *testing.T) {
	gaz := normalize.NewGazetteer(nil)
	for _, location := range []string{"", "   "} {
		if got := gaz.Resolve(location, "Bogotá"); got != "Bogotá" {
			t.Errorf("Resolve(%q) = %q, want default city", location, got)
		}
	}
}

// ── LoadGazetteer ──────────────────────────────────────────────────────────

func TestLoadGazetteer_EmptyPathUsesBuiltinList(t *testing.T) {
	gaz, err := normalize.LoadGazetteer("")
	if err != nil {
		t.Fatalf("LoadGazetteer(\"\") returned error: %v", err)
	}
	if got := gaz.Resolve("Cra 7, Bogotá", "Cali"); got != "Bogotá" {
		t.Errorf("built-in gazetteer did not resolve Bogotá, got %q", got)
	}
}

func TestLoadGazetteer_CustomFileReplacesBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	yaml := "cities:\n  - Tunja\n  - Quibdó\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	gaz, err := normalize.LoadGazetteer(path)
	if err != nil {
		t.Fatalf("LoadGazetteer returned error: %v", err)
	}

	if got := gaz.Resolve("Cerca a Tunja", "Bogotá"); got != "Tunja" {
		t.Errorf("Resolve(Tunja location) = %q, want Tunja", got)
	}
	// Built-in entries are replaced, not merged: Bogotá now resolves via the
	// before-comma fallback.
	if got := gaz.Resolve("Bogotá, Cundinamarca", "Cali"); got != "Bogotá" {
		t.Errorf("before-comma fallback = %q, want Bogotá", got)
	}
}

func TestLoadGazetteer_MissingFile(t *testing.T) {
	if _, err := normalize.LoadGazetteer("/does/not/exist.yaml"); err == nil {
		t.Error("LoadGazetteer on a missing file should return an error")
	}
}

func TestLoadGazetteer_EmptyCityList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	if err := os.WriteFile(path, []byte("cities: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := normalize.LoadGazetteer(path); err == nil {
		t.Error("LoadGazetteer on an empty city list should return an error")
	}
}
