package bridge

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// Arg is one decoded OSC argument. The concrete types below are the only
// implementations.
type Arg interface {
	// Tag is the OSC type tag character for the argument.
	Tag() byte
	String() string

	value() any
}

type (
	String string
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Blob   []byte
	Bool   bool
	Nil    struct{}
	Time   time.Time
)

func (String) Tag() byte { return 's' }
func (Int) Tag() byte    { return 'i' }
func (Long) Tag() byte   { return 'h' }
func (Float) Tag() byte  { return 'f' }
func (Double) Tag() byte { return 'd' }
func (Blob) Tag() byte   { return 'b' }
func (Nil) Tag() byte    { return 'N' }
func (Time) Tag() byte   { return 't' }

func (b Bool) Tag() byte {
	if b {
		return 'T'
	}
	return 'F'
}

func (a String) String() string { return strconv.Quote(string(a)) }
func (a Int) String() string    { return strconv.FormatInt(int64(a), 10) }
func (a Long) String() string   { return strconv.FormatInt(int64(a), 10) }
func (a Float) String() string  { return strconv.FormatFloat(float64(a), 'g', -1, 32) }
func (a Double) String() string { return strconv.FormatFloat(float64(a), 'g', -1, 64) }
func (a Blob) String() string   { return "0x" + hex.EncodeToString(a) }
func (a Bool) String() string   { return strconv.FormatBool(bool(a)) }
func (Nil) String() string      { return "nil" }
func (a Time) String() string   { return time.Time(a).Format(time.RFC3339Nano) }

func (a String) value() any { return string(a) }
func (a Int) value() any    { return int32(a) }
func (a Long) value() any   { return int64(a) }
func (a Float) value() any  { return float32(a) }
func (a Double) value() any { return float64(a) }
func (a Blob) value() any   { return []byte(a) }
func (a Bool) value() any   { return bool(a) }
func (Nil) value() any      { return nil }
func (a Time) value() any   { return osc.NewTimetag(time.Time(a)) }

// FromOSC converts an argument produced by the OSC decoder.
func FromOSC(v any) (Arg, error) {
	switch x := v.(type) {
	case string:
		return String(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Long(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Double(x), nil
	case []byte:
		return Blob(x), nil
	case bool:
		return Bool(x), nil
	case nil:
		return Nil{}, nil
	case osc.Timetag:
		return Time(x.Time()), nil
	default:
		return nil, fmt.Errorf("unsupported OSC argument type %T", v)
	}
}

// ParseArg converts text to an argument of the given type tag.
func ParseArg(tag byte, text string) (Arg, error) {
	text = strings.TrimSpace(text)
	switch tag {
	case 's':
		return String(text), nil
	case 'i':
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse int32 %q: %w", text, err)
		}
		return Int(n), nil
	case 'h':
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int64 %q: %w", text, err)
		}
		return Long(n), nil
	case 'f':
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, fmt.Errorf("parse float32 %q: %w", text, err)
		}
		return Float(f), nil
	case 'd':
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float64 %q: %w", text, err)
		}
		return Double(f), nil
	case 'T', 'F':
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", text, err)
		}
		return Bool(b), nil
	case 'N':
		return Nil{}, nil
	default:
		return nil, fmt.Errorf("unsupported type tag %q", tag)
	}
}

// InferArg picks int32, then float32, then string.
func InferArg(text string) Arg {
	if n, err := strconv.ParseInt(text, 10, 32); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(text, 32); err == nil {
		return Float(f)
	}
	return String(text)
}
