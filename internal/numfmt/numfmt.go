// Package numfmt parses and formats locale-style numeric strings such as
// "1,234.50" or "1.234,50". Parsing never fails: malformed input yields the
// caller's default value.
package numfmt

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoRounding disables quantization when used as Options.DecimalPlaces.
const NoRounding = -1

// Options configures parsing and formatting.
type Options struct {
	DefaultValue       float64
	DecimalPlaces      int // NoRounding (-1) keeps full precision
	TrimZeros          bool
	DecimalSeparator   string
	ThousandsSeparator string
	AllowNegative      bool
}

// DefaultOptions returns the en-US style configuration with two decimal places.
func DefaultOptions() Options {
	return Options{
		DefaultValue:       0,
		DecimalPlaces:      2,
		DecimalSeparator:   ".",
		ThousandsSeparator: ",",
	}
}

// LocaleOptions derives the separators used by the given locale. Locales whose
// sample output cannot be decoded (for example non-ASCII digits) fall back to
// DefaultOptions.
func LocaleOptions(tag language.Tag) Options {
	opts := DefaultOptions()
	sample := message.NewPrinter(tag).Sprintf("%.1f", 1234.5)

	i := strings.Index(sample, "1")
	j := strings.Index(sample, "234")
	k := strings.LastIndex(sample, "5")
	if i < 0 || j <= i || k <= j+3 {
		return opts
	}
	dec := sample[j+3 : k]
	if dec == "" {
		return opts
	}
	opts.DecimalSeparator = dec
	opts.ThousandsSeparator = sample[i+1 : j]
	return opts
}

func (o Options) normalized() Options {
	if o.DecimalSeparator == "" {
		o.DecimalSeparator = "."
	}
	if o.ThousandsSeparator == "" {
		if o.DecimalSeparator == "," {
			o.ThousandsSeparator = "."
		} else {
			o.ThousandsSeparator = ","
		}
	}
	if o.ThousandsSeparator == o.DecimalSeparator {
		o.ThousandsSeparator = ""
	}
	if o.DecimalPlaces < NoRounding {
		o.DecimalPlaces = NoRounding
	}
	return o
}

// ParseNumber converts value to a float64. Numeric inputs are re-quantized to
// opts.DecimalPlaces; strings are cleaned of anything but digits, separators
// and a leading sign before conversion. nil, empty and malformed inputs, as
// well as NaN and infinities, yield opts.DefaultValue.
func ParseNumber(value any, opts Options) float64 {
	opts = opts.normalized()

	switch v := value.(type) {
	case nil:
		return opts.DefaultValue
	case float64:
		return quantize(v, opts)
	case float32:
		return quantize(float64(v), opts)
	case int:
		return quantize(float64(v), opts)
	case int32:
		return quantize(float64(v), opts)
	case int64:
		return quantize(float64(v), opts)
	case uint:
		return quantize(float64(v), opts)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return opts.DefaultValue
		}
		return quantize(f, opts)
	case string:
		f, ok := parseString(v, opts)
		if !ok {
			return opts.DefaultValue
		}
		return f
	default:
		return parseKind(reflect.ValueOf(value), opts)
	}
}

// parseKind handles the remaining integer and float types, including named
// ones such as a price type declared over float64.
func parseKind(rv reflect.Value, opts Options) float64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return quantize(float64(rv.Int()), opts)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return quantize(float64(rv.Uint()), opts)
	case reflect.Float32, reflect.Float64:
		return quantize(rv.Float(), opts)
	}
	return opts.DefaultValue
}

// IsTransformableToNumber reports whether ParseNumber would convert s instead
// of falling back to the default value.
func IsTransformableToNumber(s string, opts Options) bool {
	_, ok := canonicalize(s, opts.normalized())
	return ok
}

// FormatNumber renders value with fixed decimal places and grouped thousands.
// The output parses back to the same value under the same options.
func FormatNumber(value float64, opts Options) string {
	opts = opts.normalized()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = opts.DefaultValue
	}

	d := decimal.NewFromFloat(value)
	var s string
	if opts.DecimalPlaces >= 0 {
		s = d.StringFixed(int32(opts.DecimalPlaces))
	} else {
		s = d.String()
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	if opts.TrimZeros {
		frac = strings.TrimRight(frac, "0")
	}

	out := group(intPart, opts.ThousandsSeparator)
	if frac != "" {
		out += opts.DecimalSeparator + frac
	}
	if negative {
		out = "-" + out
	}
	return out
}

func quantize(f float64, opts Options) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return opts.DefaultValue
	}
	if opts.DecimalPlaces == NoRounding {
		return f
	}
	r, _ := decimal.NewFromFloat(f).Round(int32(opts.DecimalPlaces)).Float64()
	return r
}

func parseString(s string, opts Options) (float64, bool) {
	canonical, ok := canonicalize(s, opts)
	if !ok {
		return 0, false
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return 0, false
	}
	if opts.DecimalPlaces != NoRounding {
		d = d.Round(int32(opts.DecimalPlaces))
	}
	f, _ := d.Float64()
	return f, true
}

// canonicalize reduces s to a plain "-?digits(.digits)?" literal. It rejects
// repeated decimal separators, misplaced thousands separators, a sign that is
// not leading, and input without digits.
func canonicalize(s string, opts Options) (string, bool) {
	const (
		decTok  = 'D'
		thouTok = 'T'
	)

	tokens := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			tokens = append(tokens, s[i])
			i++
		case strings.HasPrefix(s[i:], opts.DecimalSeparator):
			tokens = append(tokens, decTok)
			i += len(opts.DecimalSeparator)
		case opts.ThousandsSeparator != "" && strings.HasPrefix(s[i:], opts.ThousandsSeparator):
			tokens = append(tokens, thouTok)
			i += len(opts.ThousandsSeparator)
		case s[i] == '-':
			tokens = append(tokens, '-')
			i++
		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
		}
	}

	negative := false
	if len(tokens) > 0 && tokens[0] == '-' {
		negative = opts.AllowNegative
		tokens = tokens[1:]
	}

	body := string(tokens)
	intPart, frac, hasDec := strings.Cut(body, string(decTok))
	if hasDec && strings.ContainsAny(frac, string([]byte{decTok, thouTok})) {
		return "", false
	}
	if strings.ContainsRune(body, '-') {
		return "", false
	}

	digits := intPart
	if strings.ContainsRune(intPart, thouTok) {
		groups := strings.Split(intPart, string(thouTok))
		if len(groups[0]) < 1 || len(groups[0]) > 3 {
			return "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", false
			}
		}
		digits = strings.Join(groups, "")
	}

	if digits == "" && frac == "" {
		return "", false
	}
	if digits == "" {
		digits = "0"
	}

	out := digits
	if frac != "" {
		out += "." + frac
	}
	if negative {
		out = "-" + out
	}
	return out, true
}

func group(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
