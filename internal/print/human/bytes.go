package human

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// Bytes is a number of bytes.
//
// Values parse from forms like "512", "64 KiB", "1.5MiB" or "2 MB". Units of
// the KB family are factors of 1000 and units of the KiB family factors of
// 1024. The unit may be abbreviated as long as it stays a prefix ("2 Ki").
//
// Values always format with 1024 factors.
type Bytes uint64

const (
	B Bytes = 1

	KB Bytes = 1000 * B
	MB Bytes = 1000 * KB
	GB Bytes = 1000 * MB
	TB Bytes = 1000 * GB

	KiB Bytes = 1024 * B
	MiB Bytes = 1024 * KiB
	GiB Bytes = 1024 * MiB
	TiB Bytes = 1024 * GiB
)

type byteUnit struct {
	scale Bytes
	unit  string
}

// Ordered from the largest so abbreviations match the 1024 family first.
var parseUnits = [...]byteUnit{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
	{TB, "TB"},
	{GB, "GB"},
	{MB, "MB"},
	{KB, "KB"},
	{B, "B"},
}

var formatUnits = [...]byteUnit{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
	{B, "B"},
}

// ParseBytes parses s as a number of bytes. Fractions of a byte are
// truncated.
func ParseBytes(s string) (Bytes, error) {
	value, unit := parseUnit(s)

	scale := Bytes(0)
	if unit == "" {
		scale = B
	} else {
		for _, u := range parseUnits {
			if matchUnit(unit, u.unit) {
				scale = u.scale
				break
			}
		}
	}
	if scale == 0 {
		return 0, fmt.Errorf("malformed bytes representation: %q", s)
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed bytes representation: %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid negative byte count: %q", s)
	}
	return Bytes(math.Floor(f * float64(scale))), nil
}

func (b Bytes) String() string {
	if b == 0 {
		return "0"
	}
	for _, u := range formatUnits {
		if b >= u.scale {
			return ftoa(float64(b)/float64(u.scale)) + " " + u.unit
		}
	}
	panic("unreachable")
}

func (b Bytes) GoString() string {
	return fmt.Sprintf("human.Bytes(%d)", uint64(b))
}

func (b *Bytes) Set(s string) error {
	p, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = p
	return nil
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(b))
}

func (b *Bytes) UnmarshalJSON(j []byte) error {
	return json.Unmarshal(j, (*uint64)(b))
}

func (b Bytes) MarshalYAML() (any, error) {
	return uint64(b), nil
}

// UnmarshalYAML accepts both plain integers and strings with units.
func (b *Bytes) UnmarshalYAML(y *yaml.Node) error {
	var s string
	if err := y.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bytes) UnmarshalText(t []byte) error {
	return b.Set(string(t))
}

var (
	_ fmt.GoStringer = Bytes(0)
	_ fmt.Stringer   = Bytes(0)

	_ json.Marshaler   = Bytes(0)
	_ json.Unmarshaler = (*Bytes)(nil)

	_ yaml.Marshaler   = Bytes(0)
	_ yaml.Unmarshaler = (*Bytes)(nil)

	_ encoding.TextMarshaler   = Bytes(0)
	_ encoding.TextUnmarshaler = (*Bytes)(nil)

	_ flag.Value = (*Bytes)(nil)
)
