// Package cityprofile provides the static per-city knowledge used to localize
// generated content: road names, landmarks, and fun facts.
//
// Profiles are loaded once at process start from an embedded YAML document,
// optionally merged with an operator-supplied override file. The resulting
// table is immutable and safe for concurrent reads.
package cityprofile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

// Generic fallback wording used when a profile lacks a field. Guarantees the
// renderer never produces an empty substitution, even for unconfigured cities.
const (
	GenericRoad     = "Main St"
	GenericHighway  = "the highway"
	GenericLandmark = "the park"
	GenericVenue    = "the local venue"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// Roads groups the road knowledge for one city.
type Roads struct {
	Arterials   []string `yaml:"arterials"`
	Highways    []string `yaml:"highways"`
	SchoolZones []string `yaml:"school_zones"`
}

// Landmarks groups the named-place knowledge for one city.
type Landmarks struct {
	Shopping    []string `yaml:"shopping"`
	Venues      []string `yaml:"venues"`
	Restaurants []string `yaml:"restaurants"`
}

// Profile is the immutable reference data for one city.
type Profile struct {
	Name      string              `yaml:"name"`
	Timezone  string              `yaml:"timezone,omitempty"`
	Roads     Roads               `yaml:"roads"`
	Landmarks Landmarks           `yaml:"landmarks"`
	FunFacts  map[string][]string `yaml:"fun_facts"`
	Cuisine   map[string][]string `yaml:"cuisine,omitempty"`
}

// Store holds the loaded profile table, keyed by normalized city name.
type Store struct {
	profiles map[string]Profile
}

type profileFile struct {
	Cities []Profile `yaml:"cities"`
}

// Load parses the embedded profile set and, if overridePath is non-empty,
// merges the override file's cities on top of it (override wins per city).
func Load(overridePath string) (*Store, error) {
	s := &Store{profiles: make(map[string]Profile)}
	if err := s.merge(embeddedProfiles); err != nil {
		return nil, fmt.Errorf("failed to parse embedded profiles: %w", err)
	}
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile override %s: %w", overridePath, err)
		}
		if err := s.merge(data); err != nil {
			return nil, fmt.Errorf("failed to parse profile override %s: %w", overridePath, err)
		}
		slog.Info("cityprofile.Load: merged profile override", "path", overridePath, "cities", len(s.profiles))
	}
	slog.Debug("cityprofile.Load: profiles loaded", "cities", len(s.profiles))
	return s, nil
}

func (s *Store) merge(data []byte) error {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for _, p := range f.Cities {
		s.profiles[NormalizeCityName(p.Name)] = p
	}
	return nil
}

// NormalizeCityName lowers the city name and keeps only the first comma
// segment, so "Leander, TX" and "leander" resolve to the same profile.
func NormalizeCityName(city string) string {
	if i := strings.Index(city, ","); i >= 0 {
		city = city[:i]
	}
	return strings.ToLower(strings.TrimSpace(city))
}

// Lookup returns the profile for a city. Unknown cities get a zero-value
// profile carrying the requested name; all accessors fall back to generic
// wording, so a missing profile is never an error.
func (s *Store) Lookup(city string) Profile {
	if p, ok := s.profiles[NormalizeCityName(city)]; ok {
		return p
	}
	slog.Debug("cityprofile.Lookup: no profile for city, using generic fallbacks", "city", city)
	return Profile{Name: strings.TrimSpace(city)}
}

// Road returns an arterial road by index (callers pick the index randomly),
// falling back to a highway and then to generic wording.
func (p Profile) Road(i int) string {
	if pick := indexInto(p.Roads.Arterials, i); pick != "" {
		return pick
	}
	if pick := indexInto(p.Roads.Highways, i); pick != "" {
		return pick
	}
	return GenericRoad
}

// Highway returns a highway by index, falling back to generic wording.
func (p Profile) Highway(i int) string {
	if pick := indexInto(p.Roads.Highways, i); pick != "" {
		return pick
	}
	if pick := indexInto(p.Roads.Arterials, i); pick != "" {
		return pick
	}
	return GenericHighway
}

// Landmark returns a shopping or venue landmark by index.
func (p Profile) Landmark(i int) string {
	all := append(append([]string{}, p.Landmarks.Shopping...), p.Landmarks.Venues...)
	if pick := indexInto(all, i); pick != "" {
		return pick
	}
	return GenericLandmark
}

// Venue returns an event venue by index.
func (p Profile) Venue(i int) string {
	if pick := indexInto(p.Landmarks.Venues, i); pick != "" {
		return pick
	}
	return GenericVenue
}

// FunFact returns a fun fact for the given category by index, or "" when the
// profile has none. The renderer treats "" as "skip the injection".
func (p Profile) FunFact(category string, i int) string {
	if facts, ok := p.FunFacts[category]; ok {
		return indexInto(facts, i)
	}
	return ""
}

// CuisineFact returns a cuisine fun fact for the given cuisine key by index.
func (p Profile) CuisineFact(cuisine string, i int) string {
	if facts, ok := p.Cuisine[cuisine]; ok {
		return indexInto(facts, i)
	}
	return ""
}

// FunFactCategories returns the categories this profile has facts for.
func (p Profile) FunFactCategories() []string {
	cats := make([]string, 0, len(p.FunFacts))
	for c := range p.FunFacts {
		if len(p.FunFacts[c]) > 0 {
			cats = append(cats, c)
		}
	}
	return cats
}

// Slug returns the lowercase no-space form of the city name used in
// synthetic author handles.
func (p Profile) Slug() string {
	return strings.ReplaceAll(NormalizeCityName(p.Name), " ", "")
}

func indexInto(items []string, i int) string {
	if len(items) == 0 {
		return ""
	}
	if i < 0 {
		i = -i
	}
	return items[i%len(items)]
}
