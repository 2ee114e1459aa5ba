package extract

import "strings"

// Item types the extractor understands.
const (
	SchemaPerson = "http://schema.org/Person"

	// HistoricalPerson is the obsolete historical-data.org person type.
	HistoricalPerson = "http://historical-data.org/HistoricalPerson"

	// HistoricalPersonVariant is a common, incorrect spelling of HistoricalPerson.
	HistoricalPersonVariant = "http://historical-data.org/HistoricalPerson.html"

	SchemaPlace         = "http://schema.org/Place"
	SchemaPostalAddress = "http://schema.org/PostalAddress"
)

// IsPersonType reports whether t names a person. The https form of a type
// URI is treated like the http one.
func IsPersonType(t string) bool {
	switch canonicalType(t) {
	case SchemaPerson, HistoricalPerson, HistoricalPersonVariant:
		return true
	}
	return false
}

// IsPlaceType reports whether t names a schema.org Place.
func IsPlaceType(t string) bool {
	return canonicalType(t) == SchemaPlace
}

// IsPostalAddressType reports whether t names a schema.org PostalAddress.
func IsPostalAddressType(t string) bool {
	return canonicalType(t) == SchemaPostalAddress
}

func canonicalType(t string) string {
	t = strings.TrimSpace(t)
	if rest, ok := strings.CutPrefix(t, "https://"); ok {
		return "http://" + rest
	}
	return t
}
