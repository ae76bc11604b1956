package sources

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	entityPattern   = regexp.MustCompile(`&[^;\s]+;`)
	invalidPattern  = regexp.MustCompile(`[^%a-z0-9 _-]`)
	separatorRegexp = regexp.MustCompile(`[\s-]+`)
	octetPattern    = regexp.MustCompile(`%([a-fA-F0-9]{2})`)
	guardedOctet    = regexp.MustCompile(`---([a-fA-F0-9]{2})---`)

	// letters that do not decompose into base letter plus mark
	ligatures = strings.NewReplacer(
		"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
		"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
		"þ", "th", "Þ", "TH", "ð", "d", "Ð", "D",
	)
)

// Slugify turns a term name into a URL-safe tag slug
func Slugify(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = removeAccents(s)
	s = keepOctets(s)
	s = strings.ToLower(s)
	s = encodeNonASCII(s)
	s = entityPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(".", "-", "/", "-").Replace(s)
	s = invalidPattern.ReplaceAllString(s, "")
	s = separatorRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func removeAccents(s string) string {
	s = ligatures.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// keepOctets drops stray percent signs but keeps already escaped octets
func keepOctets(s string) string {
	s = octetPattern.ReplaceAllString(s, "---$1---")
	s = strings.ReplaceAll(s, "%", "")
	return guardedOctet.ReplaceAllString(s, "%$1")
}

// encodeNonASCII percent-encodes letters and digits outside ASCII with
// lower-case hex. Unicode spaces and dashes become separators, other
// symbols are dropped.
func encodeNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case unicode.IsSpace(r), unicode.Is(unicode.Pd, r):
			b.WriteByte('-')
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02x", c)
			}
		}
	}
	return b.String()
}
