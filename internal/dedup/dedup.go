// Package dedup decides, per arriving record, whether it is a new
// entity or a duplicate of one already admitted this run.
package dedup

import (
	"math"
	"strings"

	"placewatch/internal/core/domain"
	"placewatch/internal/metrics"
)

const earthRadiusMeters = 6378137.0

// Key is the derived identity of an admitted record: normalized name
// plus coordinates. Used only for comparison, never persisted.
type Key struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Decision is the admit/reject outcome for one record.
type Decision struct {
	Admitted  bool
	Duplicate Key // the retained key, when rejected
}

// Deduplicator holds the run's admitted identity keys. State grows
// monotonically for the lifetime of one run and is owned by a single
// goroutine; there is no eviction and no cross-run persistence.
type Deduplicator struct {
	toleranceMeters float64
	seen            map[string][]Key // normalized name -> admitted coordinates
}

// New creates a deduplicator with the given geographic tolerance.
func New(toleranceMeters float64) *Deduplicator {
	return &Deduplicator{
		toleranceMeters: toleranceMeters,
		seen:            make(map[string][]Key),
	}
}

// Admit decides whether the record is a new entity. Two records are the
// same entity when their normalized names are equal and their
// coordinates lie within the tolerance. First seen wins: a rejected
// record never overwrites or merges into the retained one.
func (d *Deduplicator) Admit(p *domain.Place) Decision {
	name := NormalizeName(p.Name)

	for _, k := range d.seen[name] {
		if Haversine(k.Latitude, k.Longitude, p.Latitude, p.Longitude) <= d.toleranceMeters {
			metrics.RecordsRejected.Inc()
			return Decision{Duplicate: k}
		}
	}

	key := Key{Name: name, Latitude: p.Latitude, Longitude: p.Longitude}
	d.seen[name] = append(d.seen[name], key)
	metrics.RecordsAdmitted.Inc()
	return Decision{Admitted: true}
}

// Size returns the number of admitted identity keys.
func (d *Deduplicator) Size() int {
	n := 0
	for _, keys := range d.seen {
		n += len(keys)
	}
	return n
}

// NormalizeName lowercases a listing name and collapses whitespace runs
// to single spaces.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Haversine returns the great-circle distance in meters between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
