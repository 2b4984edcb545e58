package language

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a 3-letter language code understood by the translation model.
type Code string

// Supported language codes (both directions).
const (
	English    Code = "eng"
	Spanish    Code = "spa"
	French     Code = "fra"
	German     Code = "deu"
	Italian    Code = "ita"
	Portuguese Code = "por"
	Russian    Code = "rus"
	Mandarin   Code = "cmn"
	Japanese   Code = "jpn"
	Korean     Code = "kor"
	Arabic     Code = "arb"
	Hindi      Code = "hin"
)

// ErrUnsupported indicates a language code outside the supported set.
var ErrUnsupported = errors.New("unsupported language code")

// supported is the fixed set of codes in a stable presentation order.
var supported = []Code{
	English, Spanish, French, German, Italian, Portuguese,
	Russian, Mandarin, Japanese, Korean, Arabic, Hindi,
}

var supportedSet = func() map[Code]struct{} {
	set := make(map[Code]struct{}, len(supported))
	for _, c := range supported {
		set[c] = struct{}{}
	}
	return set
}()

// Parse validates a raw language code and returns its canonical form.
func Parse(raw string) (Code, error) {
	code := Code(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := supportedSet[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, raw)
	}
	return code, nil
}

// IsSupported reports whether the code belongs to the supported set.
func IsSupported(code Code) bool {
	_, ok := supportedSet[code]
	return ok
}

// Supported returns the supported codes in a stable order.
func Supported() []Code {
	out := make([]Code, len(supported))
	copy(out, supported)
	return out
}

// ValidatePair checks both ends of a language pair. Translating a language
// to itself is a valid request.
func ValidatePair(src, tgt Code) error {
	if !IsSupported(src) {
		return fmt.Errorf("source %w: %q", ErrUnsupported, src)
	}
	if !IsSupported(tgt) {
		return fmt.Errorf("target %w: %q", ErrUnsupported, tgt)
	}
	return nil
}

func (c Code) String() string {
	return string(c)
}
