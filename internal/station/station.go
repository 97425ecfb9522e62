// Package station holds the identity a sensor node stamps on every message.
package station

import (
	"fmt"
	"strings"
)

// reserved are the wire delimiters; none of them may appear in an identity value.
const reserved = "#/:"

// Identity is the station name and geolocation. It is built once at startup
// and never changes; the zero value is not valid.
type Identity struct {
	name      string
	latitude  string
	longitude string
	altitude  string
}

// New validates and returns an Identity. Values are kept verbatim (coordinates
// are strings on the wire, so no numeric normalisation is applied).
func New(name, latitude, longitude, altitude string) (Identity, error) {
	fields := []struct {
		key, value string
	}{
		{"name", name},
		{"latitude", latitude},
		{"longitude", longitude},
		{"altitude", altitude},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Identity{}, fmt.Errorf("station %s is required", f.key)
		}
		if strings.ContainsAny(f.value, reserved) {
			return Identity{}, fmt.Errorf("station %s %q contains a reserved character (one of %q)", f.key, f.value, reserved)
		}
		if !isASCII(f.value) {
			return Identity{}, fmt.Errorf("station %s %q must be ASCII", f.key, f.value)
		}
	}
	return Identity{
		name:      name,
		latitude:  latitude,
		longitude: longitude,
		altitude:  altitude,
	}, nil
}

func (i Identity) Name() string      { return i.name }
func (i Identity) Latitude() string  { return i.latitude }
func (i Identity) Longitude() string { return i.longitude }
func (i Identity) Altitude() string  { return i.altitude }

// IsZero reports whether the identity was never initialised through New.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (%s, %s @ %s)", i.name, i.latitude, i.longitude, i.altitude)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}
