package microdata

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

// historicalSelector matches the item scopes that mark a page as carrying
// genealogical data.
const historicalSelector = `[itemscope][itemtype^="http://historical-data.org/"],` +
	`[itemscope][itemtype="http://schema.org/Person"]`

// HasHistoricalData reports whether the document in r has a historical-data
// item or a schema.org Person item.
func HasHistoricalData(r io.Reader) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return false, errors.Wrap(err, "parse html")
	}
	return hasHistoricalData(doc), nil
}

func hasHistoricalData(doc *goquery.Document) bool {
	return doc.Find(historicalSelector).Length() > 0
}
