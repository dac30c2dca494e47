// Package zones resolves a geographic coordinate to a service tier based on
// great-circle distance from the business base location.
package zones

import (
	"fmt"
	"math"
	"sort"
)

// Tier is a coarse geographic service-priority bucket.
type Tier string

const (
	TierPriority Tier = "PRIORITY"
	TierStandard Tier = "STANDARD"
	TierExtended Tier = "EXTENDED"
	TierReview   Tier = "REVIEW"
)

const (
	earthRadiusKm = 6371

	// Beyond this distance the quote always goes to manual review and the
	// label no longer carries the distance figure.
	reviewCutoffKm = 55
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Definition is one ring of the coverage table.
type Definition struct {
	Tier          Tier
	MaxDistanceKm float64
}

// Result is the outcome of a zone resolution. It always carries a tier;
// resolution never fails.
type Result struct {
	Tier       Tier
	Label      string
	DistanceKm float64
}

// Resolver maps coordinates to service tiers. It is pure and safe for
// concurrent use.
type Resolver struct {
	base Coordinate
	defs []Definition
}

// NewResolver builds a resolver for the given base coordinate. Definitions
// are sorted ascending by radius so the innermost matching ring wins.
func NewResolver(base Coordinate, defs []Definition) *Resolver {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MaxDistanceKm < sorted[j].MaxDistanceKm
	})
	return &Resolver{base: base, defs: sorted}
}

// DefaultDefinitions returns the production coverage table.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Tier: TierPriority, MaxDistanceKm: 15},
		{Tier: TierStandard, MaxDistanceKm: 35},
		{Tier: TierExtended, MaxDistanceKm: 55},
	}
}

// Resolve maps a coordinate to the first ring whose radius covers its
// distance from the base. Coordinates outside every ring resolve to
// TierReview, with the distance noted while still within the review cutoff.
func (r *Resolver) Resolve(lat, lng float64) Result {
	distance := haversineKm(r.base, Coordinate{Lat: lat, Lng: lng})

	for _, def := range r.defs {
		if distance <= def.MaxDistanceKm {
			return Result{
				Tier:       def.Tier,
				Label:      TierLabel(def.Tier),
				DistanceKm: distance,
			}
		}
	}

	if distance <= reviewCutoffKm {
		return Result{
			Tier:       TierReview,
			Label:      fmt.Sprintf("Fuera de cobertura inmediata (%.0f km)", distance),
			DistanceKm: distance,
		}
	}

	return Result{
		Tier:       TierReview,
		Label:      TierLabel(TierReview),
		DistanceKm: distance,
	}
}

// TierLabel returns the display label for a tier.
func TierLabel(t Tier) string {
	switch t {
	case TierPriority:
		return "Prioritaria"
	case TierStandard:
		return "Estándar"
	case TierExtended:
		return "Extendida"
	default:
		return "Fuera de cobertura / revisión manual"
	}
}

func haversineKm(a, b Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
