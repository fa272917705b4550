// Package htmlutil decodes HTML character entities and strips markup from
// scraped fragments. The sources served by SUNAT encode Spanish accented
// letters as named entities, often inside otherwise malformed HTML, so the
// decoder works on raw text and leaves anything it does not recognize
// untouched instead of failing.
package htmlutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numericEntityRe = regexp.MustCompile(`&#(\d{2,3});`)
	hexEntityRe     = regexp.MustCompile(`&#x([0-9a-fA-F]{2,4});`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// namedEntities covers the Latin/Spanish set the SUNAT pages actually use
var namedEntities = map[string]string{
	"&aacute;": "á", "&Aacute;": "Á",
	"&acirc;": "â", "&Acirc;": "Â",
	"&agrave;": "à", "&Agrave;": "À",
	"&aring;": "å", "&Aring;": "Å",
	"&atilde;": "ã", "&Atilde;": "Ã",
	"&auml;": "ä", "&Auml;": "Ä",
	"&eacute;": "é", "&Eacute;": "É",
	"&ecirc;": "ê", "&Ecirc;": "Ê",
	"&egrave;": "è", "&Egrave;": "È",
	"&euml;": "ë", "&Euml;": "Ë",
	"&iacute;": "í", "&Iacute;": "Í",
	"&icirc;": "î", "&Icirc;": "Î",
	"&igrave;": "ì", "&Igrave;": "Ì",
	"&iuml;": "ï", "&Iuml;": "Ï",
	"&ntilde;": "ñ", "&Ntilde;": "Ñ",
	"&oacute;": "ó", "&Oacute;": "Ó",
	"&ocirc;": "ô", "&Ocirc;": "Ô",
	"&ograve;": "ò", "&Ograve;": "Ò",
	"&otilde;": "õ", "&Otilde;": "Õ",
	"&ouml;": "ö", "&Ouml;": "Ö",
	"&uacute;": "ú", "&Uacute;": "Ú",
	"&ucirc;": "û", "&Ucirc;": "Û",
	"&ugrave;": "ù", "&Ugrave;": "Ù",
	"&uuml;": "ü", "&Uuml;": "Ü",
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&apos;": "'",
	"&nbsp;": " ",
	"&copy;": "©",
	"&reg;":  "®",
	"&deg;":  "°",
}

// Decode resolves numeric (&#NN;), hex (&#xHH;) and known named character
// entities. Unknown or malformed entities are left as-is.
func Decode(s string) string {
	result := numericEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil {
			return m
		}
		return string(rune(code))
	})

	result = hexEntityRe.ReplaceAllStringFunc(result, func(m string) string {
		code, err := strconv.ParseInt(m[3:len(m)-1], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})

	for entity, char := range namedEntities {
		result = strings.ReplaceAll(result, entity, char)
	}

	return result
}

// StripTags decodes entities, removes HTML tags and collapses whitespace.
// Decoding runs first so that entities like &lt; resolve before the tag
// pass; the order is deliberate and load-bearing for sources that mix both.
func StripTags(s string) string {
	content := Decode(s)
	content = tagRe.ReplaceAllString(content, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(content, " "))
}
