package listing

import (
	"fmt"
	"strings"
)

// Vertical is one of the marketplace domains
type Vertical string

const (
	VerticalAutos      Vertical = "autos"
	VerticalProperties Vertical = "properties"
	VerticalStores     Vertical = "stores"
	VerticalFood       Vertical = "food"
)

// Verticals lists every supported vertical
var Verticals = []Vertical{VerticalAutos, VerticalProperties, VerticalStores, VerticalFood}

// verticalToStorage maps a vertical to its registry key. "autos" has always
// been stored as "vehicles"; the lookup must keep that alias.
var verticalToStorage = map[Vertical]string{
	VerticalAutos:      "vehicles",
	VerticalProperties: "properties",
	VerticalStores:     "stores",
	VerticalFood:       "food",
}

// storageToVertical is the inverse lookup. Rows written with the bare
// "autos" key are still read as autos.
var storageToVertical = map[string]Vertical{
	"vehicles":   VerticalAutos,
	"autos":      VerticalAutos,
	"properties": VerticalProperties,
	"stores":     VerticalStores,
	"food":       VerticalFood,
}

var detailTables = map[Vertical]string{
	VerticalAutos:      "listings_vehicles",
	VerticalProperties: "listings_properties",
	VerticalStores:     "listings_stores",
	VerticalFood:       "listings_food",
}

// ParseVertical validates a vertical name
func ParseVertical(s string) (Vertical, error) {
	v := Vertical(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := verticalToStorage[v]; !ok {
		return "", fmt.Errorf("%w: unknown vertical %q", ErrInvalidInput, s)
	}
	return v, nil
}

// Valid reports whether v is a known vertical
func (v Vertical) Valid() bool {
	_, ok := verticalToStorage[v]
	return ok
}

// StorageKey returns the vertical registry key
func (v Vertical) StorageKey() string {
	return verticalToStorage[v]
}

// StorageCandidates returns every registry key accepted for v, preferred key first
func (v Vertical) StorageCandidates() []string {
	preferred := v.StorageKey()
	candidates := []string{preferred}
	for key, vertical := range storageToVertical {
		if vertical == v && key != preferred {
			candidates = append(candidates, key)
		}
	}
	return candidates
}

// DetailTable returns the vertical-specific detail table name
func (v Vertical) DetailTable() string {
	return detailTables[v]
}

// VerticalFromStorageKey maps a registry key back to its vertical
func VerticalFromStorageKey(key string) (Vertical, bool) {
	v, ok := storageToVertical[key]
	return v, ok
}
