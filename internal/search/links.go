// Package search builds genealogy search URLs and clipboard cards for
// extracted people.
package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/kinscan/internal/flexdate"
	"github.com/ppiankov/kinscan/internal/model"
)

// Site names used in SearchLink.Site.
const (
	SiteFamilySearch = "familysearch"
	SiteWeRelate     = "werelate"
	SiteMyHeritage   = "myheritage"
	SiteGeni         = "geni"
	SiteGooglePeople = "google"
	SiteGoogleImages = "google-images"
	SiteGoogleBooks  = "google-books"
	SiteGoogleNews   = "google-news"
	SiteGoogleMaps   = "google-maps"
)

const (
	familySearchBase = "https://www.familysearch.org/search/records/index#count=50&query="
	weRelateBase     = "http://www.werelate.org/wiki/Special:Search?ns=Person"
	myHeritageBase   = "http://www.myheritage.com/FP/API/Search/get-search-results.php?partner=google"
	geniBase         = "http://www.geni.com/search?search_type=people&names="
	googleSearchBase = "https://www.google.com/search?"
	mapsBase         = "https://maps.google.com/maps"
)

// Links returns every search link for p. The maps link is only included
// when p has a birth or death place.
func Links(p *model.Person) []model.SearchLink {
	links := []model.SearchLink{
		{Site: SiteFamilySearch, URL: FamilySearchURL(p)},
		{Site: SiteWeRelate, URL: WeRelateURL(p)},
		{Site: SiteMyHeritage, URL: MyHeritageURL(p)},
		{Site: SiteGeni, URL: GeniURL(p)},
		{Site: SiteGooglePeople, URL: GooglePeopleURL(p)},
		{Site: SiteGoogleImages, URL: GoogleImagesURL(p)},
		{Site: SiteGoogleBooks, URL: GoogleBooksURL(p)},
		{Site: SiteGoogleNews, URL: GoogleNewsURL(p)},
	}
	if maps, ok := MapsURL(p); ok {
		links = append(links, model.SearchLink{Site: SiteGoogleMaps, URL: maps})
	}
	return links
}

// FamilySearchURL builds a FamilySearch historical records query.
func FamilySearchURL(p *model.Person) string {
	given, surname := nameParts(p)

	var q strings.Builder
	if given != "" {
		q.WriteString(`+givenname:"` + given + `"~ `)
	}
	if surname != "" {
		q.WriteString(`+surname:"` + surname + `"~ `)
	}
	if p.BirthPlace != "" {
		q.WriteString(`+birth_place:"` + p.BirthPlace + `"~ `)
	}
	if year, ok := yearOf(p.BirthDate); ok {
		q.WriteString("+birth_year:" + year + "~ ")
	}
	if p.DeathPlace != "" {
		q.WriteString(`+death_place:"` + p.DeathPlace + `"~ `)
	}
	if year, ok := yearOf(p.DeathDate); ok {
		q.WriteString("+death_year:" + year + "~ ")
	}
	return familySearchBase + encodeComponent(q.String())
}

// WeRelateURL builds a WeRelate person search.
func WeRelateURL(p *model.Person) string {
	given, surname := nameParts(p)

	var keywords []string
	u := weRelateBase
	if given != "" {
		u += "&g=" + encodeComponent(given)
		keywords = append(keywords, given)
	}
	if surname != "" {
		u += "&s=" + encodeComponent(surname)
		keywords = append(keywords, surname)
	}
	if year, ok := yearOf(p.BirthDate); ok {
		u += "&bd=" + year + "&br=0"
	}
	if p.BirthPlace != "" {
		u += "&bp=" + encodeComponent(p.BirthPlace)
	}
	if year, ok := yearOf(p.DeathDate); ok {
		u += "&dd=" + year + "&dr=0"
	}
	if p.DeathPlace != "" {
		u += "&dp=" + encodeComponent(p.DeathPlace)
	}
	return u + "&k=" + encodeComponent(strings.Join(keywords, " ")) + "&rows=20&ecp=p"
}

// MyHeritageURL builds a MyHeritage search.
func MyHeritageURL(p *model.Person) string {
	given, surname := nameParts(p)

	u := myHeritageBase
	if given != "" {
		u += "&first=" + encodeComponent(given)
	}
	if surname != "" {
		u += "&last=" + encodeComponent(surname)
	}
	if year, ok := yearOf(p.BirthDate); ok {
		u += "&birth_year=" + year
	}
	if year, ok := yearOf(p.DeathDate); ok {
		u += "&death_year=" + year
	}
	return u
}

// GeniURL builds a Geni people search on the full name.
func GeniURL(p *model.Person) string {
	return geniBase + encodeURI(p.Name)
}

// GooglePeopleURL builds a Google people search restricted to genealogy.
func GooglePeopleURL(p *model.Person) string {
	return googleSearchBase + "tbs=ppl:1&q=" + GoogleQuery(p, false) + "+~genealogy"
}

// GoogleImagesURL builds a Google image search restricted to genealogy.
func GoogleImagesURL(p *model.Person) string {
	return googleSearchBase + "tbm=isch&q=" + GoogleQuery(p, false) + "+~genealogy"
}

// GoogleBooksURL builds a Google Books search.
func GoogleBooksURL(p *model.Person) string {
	return googleSearchBase + "tbm=bks&q=" + GoogleQuery(p, false)
}

// GoogleNewsURL builds a Google News archive search. Years are left out.
func GoogleNewsURL(p *model.Person) string {
	return googleSearchBase + "tbm=nws&tbs=ar:1&q=" + GoogleQuery(p, true)
}

// MapsURL returns directions from the birth place to the death place, or a
// map of the one place that is known. ok is false when neither is set.
func MapsURL(p *model.Person) (string, bool) {
	switch {
	case p.BirthPlace != "" && p.DeathPlace != "":
		return mapsBase + "?saddr=" + encodeComponent(p.BirthPlace) +
			"&daddr=" + encodeComponent(p.DeathPlace), true
	case p.DeathPlace != "":
		return mapsBase + "?q=" + encodeComponent(p.DeathPlace), true
	case p.BirthPlace != "":
		return mapsBase + "?q=" + encodeComponent(p.BirthPlace), true
	}
	return "", false
}

// GoogleQuery is the encoded name followed by a "+birth..death" year range.
func GoogleQuery(p *model.Person, excludeDates bool) string {
	q := encodeComponent(p.Name)
	if excludeDates {
		return q
	}

	birth, hasBirth := yearOf(p.BirthDate)
	death, hasDeath := yearOf(p.DeathDate)
	if !hasBirth && !hasDeath {
		return q
	}

	q += "+" + birth
	if hasBirth && hasDeath {
		q += ".."
	}
	return q + death
}

// nameParts splits the display name on spaces: the first token is the given
// name and the last is the surname. A single token is used for both.
func nameParts(p *model.Person) (given, surname string) {
	tokens := strings.Fields(p.Name)
	if len(tokens) == 0 {
		return "", ""
	}
	return tokens[0], tokens[len(tokens)-1]
}

// yearOf returns the year of d for search queries. Dates with masked year
// digits have no usable year.
func yearOf(d *flexdate.Date) (string, bool) {
	if d == nil || d.IsZero() || strings.ContainsRune(d.YearText(), flexdate.Unknown) {
		return "", false
	}
	return strconv.Itoa(d.Year()), true
}

var (
	// componentUnescaper restores the characters that JavaScript's
	// encodeURIComponent leaves alone and writes spaces as %20.
	componentUnescaper = strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	)

	// uriUnescaper additionally restores the reserved characters kept by
	// encodeURI.
	uriUnescaper = strings.NewReplacer(
		"%23", "#",
		"%24", "$",
		"%26", "&",
		"%2B", "+",
		"%2C", ",",
		"%2F", "/",
		"%3A", ":",
		"%3B", ";",
		"%3D", "=",
		"%3F", "?",
		"%40", "@",
	)
)

func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

func encodeURI(s string) string {
	return uriUnescaper.Replace(encodeComponent(s))
}
