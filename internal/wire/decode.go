package wire

import (
	"fmt"
	"strings"

	"github.com/francescopittino/AirQualityLoRaProject/internal/station"
)

// Section is one parsed sensor fragment.
type Section struct {
	Tag    string
	Fields []Field
}

// Value returns the first value stored under key.
func (s Section) Value(key string) (string, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Fault returns the reason of a fault section.
func (s Section) Fault() (string, bool) {
	return s.Value(ErrorKey)
}

// Report is a decoded message.
type Report struct {
	Station  station.Identity
	Sections []Section
}

// Section returns the section with the given tag.
func (r Report) Section(tag string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Tag == tag {
			return s, true
		}
	}
	return Section{}, false
}

// Decode parses a message produced by Compose. Unknown sensor tags are kept;
// a missing or incomplete preamble, a field without ':' and a repeated tag
// are errors.
func Decode(msg string) (Report, error) {
	if msg == "" {
		return Report{}, fmt.Errorf("empty message")
	}
	parts := strings.Split(msg, sectionMark)

	preamble, err := parseSection(parts[0])
	if err != nil {
		return Report{}, fmt.Errorf("preamble: %w", err)
	}
	if preamble.Tag != PreambleTag {
		return Report{}, fmt.Errorf("preamble: tag %q, want %q", preamble.Tag, PreambleTag)
	}
	id, err := identityFrom(preamble)
	if err != nil {
		return Report{}, fmt.Errorf("preamble: %w", err)
	}

	report := Report{Station: id}
	seen := make(map[string]struct{}, len(parts)-1)
	for i, raw := range parts[1:] {
		sec, err := parseSection(raw)
		if err != nil {
			return Report{}, fmt.Errorf("section %d: %w", i+1, err)
		}
		if _, dup := seen[sec.Tag]; dup {
			return Report{}, fmt.Errorf("section %d: duplicate tag %q", i+1, sec.Tag)
		}
		seen[sec.Tag] = struct{}{}
		report.Sections = append(report.Sections, sec)
	}
	return report, nil
}

func parseSection(raw string) (Section, error) {
	items := strings.Split(raw, fieldSep)
	if items[0] == "" {
		return Section{}, fmt.Errorf("missing tag")
	}
	sec := Section{Tag: items[0]}
	for _, item := range items[1:] {
		key, value, ok := strings.Cut(item, kvSep)
		if !ok || key == "" {
			return Section{}, fmt.Errorf("tag %s: malformed field %q", sec.Tag, item)
		}
		sec.Fields = append(sec.Fields, Field{Key: key, Value: value})
	}
	return sec, nil
}

func identityFrom(s Section) (station.Identity, error) {
	get := func(key string) (string, error) {
		v, ok := s.Value(key)
		if !ok {
			return "", fmt.Errorf("missing %s", key)
		}
		return v, nil
	}
	name, err := get(KeyName)
	if err != nil {
		return station.Identity{}, err
	}
	lat, err := get(KeyLatitude)
	if err != nil {
		return station.Identity{}, err
	}
	lon, err := get(KeyLongitude)
	if err != nil {
		return station.Identity{}, err
	}
	alt, err := get(KeyAltitude)
	if err != nil {
		return station.Identity{}, err
	}
	return station.New(name, lat, lon, alt)
}
