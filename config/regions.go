package config

import (
	"path"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

// StateRegions selects the units of one state: the state aggregate when
// IncludeState is set, then every city in order.
type StateRegions struct {
	State        string   `mapstructure:"state" yaml:"state"`
	IncludeState bool     `mapstructure:"include_state" yaml:"include_state"`
	Cities       []string `mapstructure:"cities" yaml:"cities"`
}

// Units returns the keys of the configured units in processing order.
func (s StateRegions) Units(country string) []schema.RegionKey {
	keys := make([]schema.RegionKey, 0, len(s.Cities)+1)
	if s.IncludeState {
		keys = append(keys, schema.RegionKey{Country: country, State: s.State})
	}
	for _, city := range s.Cities {
		keys = append(keys, schema.RegionKey{Country: country, State: s.State, City: city})
	}
	return keys
}

type Regions []StateRegions

// Units returns every configured unit in order.
func (r Regions) Units(country string) []schema.RegionKey {
	keys := make([]schema.RegionKey, 0)
	for _, s := range r {
		keys = append(keys, s.Units(country)...)
	}
	return keys
}

// Validate rejects empty states, states listed twice and cities listed
// twice within a state. Names are compared by name key.
func (r Regions) Validate() error {
	states := make(map[string]struct{})
	for _, s := range r {
		if s.State == "" {
			return ErrEmptyState
		}

		stateKey := utils.NameKey(s.State)
		if _, ok := states[stateKey]; ok {
			return errors.Wrap(ErrDuplicateState, s.State)
		}
		states[stateKey] = struct{}{}

		cities := make(map[string]struct{})
		for _, city := range s.Cities {
			cityKey := utils.NameKey(city)
			if cityKey == "" {
				return errors.Wrap(ErrEmptyCity, s.State)
			}
			if _, ok := cities[cityKey]; ok {
				return errors.Wrapf(ErrDuplicateCity, "%s: %s", s.State, city)
			}
			cities[cityKey] = struct{}{}
		}
	}
	return nil
}

// paths returns the relative output path key of every unit.
func (r Regions) paths() []string {
	paths := make([]string, 0)
	for _, s := range r {
		for _, key := range s.Units("") {
			paths = append(paths, path.Join(utils.NameKey(utils.FileName(key.State)), utils.NameKey(utils.FileName(key.Name()))))
		}
	}
	return paths
}
