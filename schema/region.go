package schema

import (
	"strings"
	"time"
)

const (
	LevelCountry = "country"
	LevelState   = "state"
	LevelCity    = "city"
)

// RegionKey identifies a geographic unit. Country is always set, State and
// City refine it.
type RegionKey struct {
	Country string `json:"country" yaml:"country"`
	State   string `json:"state,omitempty" yaml:"state,omitempty"`
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
}

// Level returns the most specific level the key names.
func (k RegionKey) Level() string {
	switch {
	case k.City != "":
		return LevelCity
	case k.State != "":
		return LevelState
	default:
		return LevelCountry
	}
}

// Name returns the display name of the unit itself.
func (k RegionKey) Name() string {
	switch k.Level() {
	case LevelCity:
		return k.City
	case LevelState:
		return k.State
	default:
		return k.Country
	}
}

func (k RegionKey) String() string {
	parts := []string{k.Country}
	if k.State != "" {
		parts = append(parts, k.State)
	}
	if k.City != "" {
		parts = append(parts, k.City)
	}
	return strings.Join(parts, "/")
}

// RegionRow is one line of a regional registry with cumulative counts.
type RegionRow struct {
	Date      time.Time `json:"date" yaml:"date"`
	State     string    `json:"state" yaml:"state"`
	City      string    `json:"city" yaml:"city"`
	PlaceType string    `json:"place_type" yaml:"place_type"`
	Confirmed float64   `json:"confirmed" yaml:"confirmed"`
	Deaths    float64   `json:"deaths" yaml:"deaths"`
}

// RegionDataset is a raw single-country dataset filterable by RegionKey.
type RegionDataset struct {
	Country string      `json:"country" yaml:"country"`
	Rows    []RegionRow `json:"rows" yaml:"rows"`
}
