// Package catalog loads the vehicle inventory from JSON files and
// serves filtered search, lookup, and comparison over it. The store is
// immutable after Load, so concurrent reads need no locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Vehicle is one catalog entry.
type Vehicle struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	BodyType     string   `json:"body_type"`
	FuelTypes    []string `json:"fuel_types"`
	PriceMinLakh float64  `json:"price_min_lakh"`
	PriceMaxLakh float64  `json:"price_max_lakh"`
	EngineCC     int      `json:"engine_cc"`
	PowerBHP     float64  `json:"power_bhp"`
	TorqueNM     float64  `json:"torque_nm"`
	Transmission []string `json:"transmission"`
	MileageKMPL  float64  `json:"mileage_kmpl"`
	Seating      int      `json:"seating"`
	ImageURL     string   `json:"image_url,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

// Query filters a catalog search. Zero values mean "no constraint".
type Query struct {
	// Name fuzzy-matches against vehicle name and brand.
	Name string

	// MaxPriceLakh keeps vehicles whose price band starts at or below
	// the limit; MinPriceLakh keeps those whose band reaches it.
	MinPriceLakh float64
	MaxPriceLakh float64

	FuelType string
	BodyType string

	// MinSeating keeps vehicles with at least this many seats.
	MinSeating int

	// Limit caps the result count. Zero means DefaultSearchLimit.
	Limit int
}

// DefaultSearchLimit bounds unfiltered searches so a tool round never
// dumps the whole catalog into the conversation.
const DefaultSearchLimit = 5

// Store is an immutable vehicle catalog.
type Store struct {
	vehicles []Vehicle
	byID     map[string]int
}

// Load reads vehicles from one or more JSON files, each containing a
// JSON array of vehicles. Later files extend the catalog; a repeated ID
// is an error.
func Load(paths ...string) (*Store, error) {
	s := &Store{byID: make(map[string]int)}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
		var vehicles []Vehicle
		if err := json.Unmarshal(raw, &vehicles); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
		if err := s.add(vehicles); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", path, err)
		}
	}
	return s, nil
}

// NewStore builds a catalog from in-memory vehicles.
func NewStore(vehicles []Vehicle) (*Store, error) {
	s := &Store{byID: make(map[string]int)}
	if err := s.add(vehicles); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return s, nil
}

func (s *Store) add(vehicles []Vehicle) error {
	for _, v := range vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle %q has no id", v.Name)
		}
		if _, dup := s.byID[v.ID]; dup {
			return fmt.Errorf("duplicate vehicle id %q", v.ID)
		}
		s.byID[v.ID] = len(s.vehicles)
		s.vehicles = append(s.vehicles, v)
	}
	return nil
}

// Len returns the number of vehicles in the catalog.
func (s *Store) Len() int {
	return len(s.vehicles)
}

// Get returns the vehicle with the given ID.
func (s *Store) Get(id string) (Vehicle, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Vehicle{}, false
	}
	return s.vehicles[i], true
}

// Search returns vehicles matching the query. With a name, results are
// ranked by fuzzy match distance; otherwise catalog order is kept.
func (s *Store) Search(q Query) []Vehicle {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type ranked struct {
		v    Vehicle
		rank int
	}
	var matches []ranked
	for _, v := range s.vehicles {
		if !s.matchesFilters(v, q) {
			continue
		}
		rank := 0
		if q.Name != "" {
			rank = nameRank(q.Name, v)
			if rank < 0 {
				continue
			}
		}
		matches = append(matches, ranked{v: v, rank: rank})
	}

	if q.Name != "" {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Vehicle, len(matches))
	for i, m := range matches {
		out[i] = m.v
	}
	return out
}

func (s *Store) matchesFilters(v Vehicle, q Query) bool {
	if q.MaxPriceLakh > 0 && v.PriceMinLakh > q.MaxPriceLakh {
		return false
	}
	if q.MinPriceLakh > 0 && v.PriceMaxLakh < q.MinPriceLakh {
		return false
	}
	if q.FuelType != "" && !containsFold(v.FuelTypes, q.FuelType) {
		return false
	}
	if q.BodyType != "" && !strings.EqualFold(v.BodyType, q.BodyType) {
		return false
	}
	if q.MinSeating > 0 && v.Seating < q.MinSeating {
		return false
	}
	return true
}

// nameRank scores a fuzzy name match; negative means no match.
func nameRank(name string, v Vehicle) int {
	if rank := fuzzy.RankMatchNormalizedFold(name, v.Name); rank >= 0 {
		return rank
	}
	if rank := fuzzy.RankMatchNormalizedFold(name, v.Brand+" "+v.Name); rank >= 0 {
		return rank
	}
	return -1
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// ComparisonRow is one attribute across the compared vehicles, in the
// same order as the vehicle list passed to Compare.
type ComparisonRow struct {
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// Compare builds attribute rows for the given vehicle IDs. Unknown IDs
// are an error so the caller can surface them as a tool failure.
func (s *Store) Compare(ids []string) ([]Vehicle, []ComparisonRow, error) {
	if len(ids) < 2 {
		return nil, nil, fmt.Errorf("catalog: comparison needs at least 2 vehicles, got %d", len(ids))
	}
	vehicles := make([]Vehicle, len(ids))
	for i, id := range ids {
		v, ok := s.Get(id)
		if !ok {
			return nil, nil, fmt.Errorf("catalog: unknown vehicle id %q", id)
		}
		vehicles[i] = v
	}

	row := func(attr string, f func(Vehicle) string) ComparisonRow {
		values := make([]string, len(vehicles))
		for i, v := range vehicles {
			values[i] = f(v)
		}
		return ComparisonRow{Attribute: attr, Values: values}
	}

	rows := []ComparisonRow{
		row("Price", func(v Vehicle) string {
			return fmt.Sprintf("₹%.2f–%.2f lakh", v.PriceMinLakh, v.PriceMaxLakh)
		}),
		row("Body type", func(v Vehicle) string { return v.BodyType }),
		row("Fuel", func(v Vehicle) string { return strings.Join(v.FuelTypes, ", ") }),
		row("Engine", func(v Vehicle) string { return fmt.Sprintf("%d cc", v.EngineCC) }),
		row("Power", func(v Vehicle) string { return fmt.Sprintf("%.0f bhp", v.PowerBHP) }),
		row("Torque", func(v Vehicle) string { return fmt.Sprintf("%.0f Nm", v.TorqueNM) }),
		row("Transmission", func(v Vehicle) string { return strings.Join(v.Transmission, ", ") }),
		row("Mileage", func(v Vehicle) string { return fmt.Sprintf("%.1f km/l", v.MileageKMPL) }),
		row("Seating", func(v Vehicle) string { return fmt.Sprintf("%d", v.Seating) }),
	}
	return vehicles, rows, nil
}
