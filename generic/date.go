package generic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE VALUE - A record date in whatever shape the origin collection stored
// =============================================================================

// Origin collections store dates three ways: a server timestamp wrapper
// ({"seconds": ..., "nanoseconds": ...}), a native time, or a string.
// DateValue keeps the shape until a DateNormalizer turns it into one
// comparable instant.
type DateValue struct {
	shape DateShape
	t     time.Time
	text  string
}

type DateShape string

const (
	ShapeEmpty     DateShape = ""
	ShapeNative    DateShape = "native"
	ShapeTimestamp DateShape = "timestamp"
	ShapeText      DateShape = "text"
)

// Dater is anything with a timestamp-wrapper style accessor.
type Dater interface {
	ToDate() time.Time
}

// Timestamp is the document store's server timestamp wrapper.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int32 `json:"nanoseconds"`
}

func (ts Timestamp) ToDate() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanoseconds)).UTC()
}

// TimestampOf wraps t the way the document store would.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

func DateOf(t time.Time) DateValue      { return DateValue{shape: ShapeNative, t: t} }
func DateText(s string) DateValue       { return DateValue{shape: ShapeText, text: s} }
func DateFromTimestamp(d Dater) DateValue { return DateValue{shape: ShapeTimestamp, t: d.ToDate()} }

func (d DateValue) Shape() DateShape { return d.shape }
func (d DateValue) IsZero() bool     { return d.shape == ShapeEmpty }

// Raw returns the stored representation: the original text for strings,
// RFC3339 for everything else.
func (d DateValue) Raw() string {
	switch d.shape {
	case ShapeText:
		return d.text
	case ShapeNative, ShapeTimestamp:
		return d.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func (d DateValue) String() string { return d.Raw() }

// DecodeDate restores a DateValue from its shape and Raw() form.
func DecodeDate(shape DateShape, raw string) DateValue {
	switch shape {
	case ShapeNative, ShapeTimestamp:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			// Keep the bad text so normalization can apply its policy.
			return DateText(raw)
		}
		return DateValue{shape: shape, t: t}
	case ShapeText:
		return DateText(raw)
	default:
		return DateValue{}
	}
}

// MarshalJSON writes native and timestamp dates as RFC3339 strings and
// text dates verbatim.
func (d DateValue) MarshalJSON() ([]byte, error) {
	if d.shape == ShapeEmpty {
		return []byte("null"), nil
	}
	return json.Marshal(d.Raw())
}

// UnmarshalJSON accepts a string, a timestamp wrapper ("seconds" or
// "_seconds"), epoch milliseconds, or null.
func (d *DateValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null" || s == "":
		*d = DateValue{}
		return nil
	case strings.HasPrefix(s, `"`):
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*d = DateText(text)
		return nil
	case strings.HasPrefix(s, "{"):
		var wrapper struct {
			Seconds      *int64 `json:"seconds"`
			Nanoseconds  int32  `json:"nanoseconds"`
			USeconds     *int64 `json:"_seconds"`
			UNanoseconds int32  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(b, &wrapper); err != nil {
			return err
		}
		switch {
		case wrapper.Seconds != nil:
			*d = DateFromTimestamp(Timestamp{Seconds: *wrapper.Seconds, Nanoseconds: wrapper.Nanoseconds})
		case wrapper.USeconds != nil:
			*d = DateFromTimestamp(Timestamp{Seconds: *wrapper.USeconds, Nanoseconds: wrapper.UNanoseconds})
		default:
			return fmt.Errorf("timestamp object without seconds: %s", s)
		}
		return nil
	default:
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("unsupported date value %s: %w", s, err)
		}
		*d = DateOf(time.UnixMilli(ms).UTC())
		return nil
	}
}

// =============================================================================
// DATE TEXT PARSING
// =============================================================================

var ErrUnparseableDate = errors.New("unparseable date")

// DateLayouts are tried in order when a date arrives as text.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDateText parses s against layouts. Layouts without a zone parse as UTC.
func ParseDateText(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
}

// =============================================================================
// NORMALIZATION POLICY
// =============================================================================

// Clock returns the current time. Injected so tests control "now".
type Clock func() time.Time

// MalformedDatePolicy decides what a record with an unusable date becomes:
// the instant to sort it by, and whether it stays in the ledger at all.
type MalformedDatePolicy func(raw string, now time.Time) (at time.Time, include bool)

// FallbackToNow keeps the record and sorts it at the current time.
func FallbackToNow(_ string, now time.Time) (time.Time, bool) { return now, true }

// ExcludeMalformed drops records whose date cannot be read.
func ExcludeMalformed(_ string, _ time.Time) (time.Time, bool) { return time.Time{}, false }

// NormalizedDate is the outcome of normalizing one DateValue.
type NormalizedDate struct {
	At       time.Time
	Fallback bool // At came from the malformed-date policy
	Include  bool
}

// DateNormalizer coerces DateValues into comparable UTC instants.
type DateNormalizer struct {
	Now       Clock
	Malformed MalformedDatePolicy
	Layouts   []string
}

// DefaultDateNormalizer uses the wall clock and FallbackToNow.
func DefaultDateNormalizer() DateNormalizer {
	return DateNormalizer{Now: time.Now, Malformed: FallbackToNow, Layouts: DateLayouts}
}

func (n DateNormalizer) Normalize(d DateValue) NormalizedDate {
	switch d.shape {
	case ShapeNative, ShapeTimestamp:
		if !d.t.IsZero() {
			return NormalizedDate{At: d.t.UTC(), Include: true}
		}
	case ShapeText:
		layouts := n.Layouts
		if len(layouts) == 0 {
			layouts = DateLayouts
		}
		if t, err := ParseDateText(d.text, layouts); err == nil {
			return NormalizedDate{At: t.UTC(), Include: true}
		}
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	policy := n.Malformed
	if policy == nil {
		policy = FallbackToNow
	}
	at, include := policy(d.Raw(), now().UTC())
	return NormalizedDate{At: at.UTC(), Fallback: true, Include: include}
}
