// Package wire renders and parses the flat ASCII message a sensor node sends
// over the radio:
//
//	SNGeo/Name:<name>/Lat:<lat>/Lon:<lon>/Alt:<alt>#<TAG>/<key>:<value>/...#<TAG>/...
//
// The preamble carries the station identity; each sensor contributes one
// fragment that starts with '#' and its tag. A failed sensor contributes
// "#<TAG>/ERROR:<reason>" in the same position. Field order is part of the
// format and is reproduced exactly.
package wire

import (
	"strconv"
	"strings"

	"github.com/francescopittino/AirQualityLoRaProject/internal/station"
)

const (
	PreambleTag = "SNGeo"
	ErrorKey    = "ERROR"

	sectionMark = "#"
	fieldSep    = "/"
	kvSep       = ":"
)

// Preamble keys, in wire order.
const (
	KeyName      = "Name"
	KeyLatitude  = "Lat"
	KeyLongitude = "Lon"
	KeyAltitude  = "Alt"
)

// Field is one key:value pair of a section.
type Field struct {
	Key   string
	Value string
}

// Fragment is the rendered contribution of one sensor. It always begins with
// '#' followed by the sensor tag.
type Fragment string

// NewFragment renders tag and fields in the given order.
func NewFragment(tag string, fields ...Field) Fragment {
	var b strings.Builder
	b.WriteString(sectionMark)
	b.WriteString(tag)
	writeFields(&b, fields)
	return Fragment(b.String())
}

// ErrorFragment renders the fault form of a fragment.
func ErrorFragment(tag, reason string) Fragment {
	return NewFragment(tag, Field{Key: ErrorKey, Value: reason})
}

// Tag returns the sensor tag the fragment starts with.
func (f Fragment) Tag() string {
	s := strings.TrimPrefix(string(f), sectionMark)
	if i := strings.Index(s, fieldSep); i >= 0 {
		return s[:i]
	}
	return s
}

// IsError reports whether the fragment is a fault fragment.
func (f Fragment) IsError() bool {
	return strings.HasPrefix(string(f), sectionMark+f.Tag()+fieldSep+ErrorKey+kvSep)
}

// Message is the composed outgoing message for one cycle.
type Message string

// Preamble renders the identity section.
func Preamble(id station.Identity) string {
	var b strings.Builder
	b.WriteString(PreambleTag)
	writeFields(&b, []Field{
		{Key: KeyName, Value: id.Name()},
		{Key: KeyLatitude, Value: id.Latitude()},
		{Key: KeyLongitude, Value: id.Longitude()},
		{Key: KeyAltitude, Value: id.Altitude()},
	})
	return b.String()
}

// Compose concatenates the preamble and the fragments with no separator
// beyond each fragment's leading '#'.
func Compose(id station.Identity, fragments []Fragment) Message {
	var b strings.Builder
	b.WriteString(Preamble(id))
	for _, f := range fragments {
		b.WriteString(string(f))
	}
	return Message(b.String())
}

func (m Message) Bytes() []byte { return []byte(m) }
func (m Message) Len() int      { return len(m) }

// Float formats a measurement with fixed six decimals ("%f").
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Uint formats an integral measurement.
func Uint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		b.WriteString(fieldSep)
		b.WriteString(f.Key)
		b.WriteString(kvSep)
		b.WriteString(f.Value)
	}
}
