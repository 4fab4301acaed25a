package monitor

import (
	"regexp"
	"strings"

	"bidwatch/lib/htmlutil"
	"bidwatch/lib/scrapers/epoint"

	"github.com/PuerkitoBio/goquery"
)

// Record is one parsed award notice, linked back to its raw notice by id.
// Data holds the flattened key/value pairs of the notice's summary table.
type Record struct {
	InfoID  string            `json:"infoid"`
	InfoURL string            `json:"infourl"`
	Data    map[string]string `json:"data"`
}

var keyCleaner = regexp.MustCompile(`[:：\s]`)

func cleanKey(text string) string {
	return strings.TrimSpace(keyCleaner.ReplaceAllString(text, ""))
}

// ParseAward extracts the summary table of an award notice. Rows usually
// carry one or two key/value pairs: cols[0]/cols[1] and, on wide rows,
// cols[2]/cols[3].
func ParseAward(n epoint.Notice) Record {
	data := map[string]string{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(n.InfoContent))
	if err != nil {
		data["error"] = err.Error()
		return Record{InfoID: n.InfoID, InfoURL: n.InfoURL, Data: data}
	}

	doc.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := htmlutil.RowCells(row, "td")
		if len(cols) >= 2 {
			data[cleanKey(cols[0])] = cols[1]
		}
		if len(cols) >= 4 {
			data[cleanKey(cols[2])] = cols[3]
		}
	})

	return Record{InfoID: n.InfoID, InfoURL: n.InfoURL, Data: data}
}

const fieldNotFound = "未找到信息"

// ExtractField pulls a single labeled value ("中标人", "中标价", ...)
// straight out of the notice HTML. Used as a fallback when the parsed
// record is missing the field.
func ExtractField(n epoint.Notice, field string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(n.InfoContent))
	if err != nil {
		return fieldNotFound
	}

	label := regexp.MustCompile(regexp.QuoteMeta(field) + `[:：]`)
	result := fieldNotFound
	doc.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if !label.MatchString(td.Text()) {
			return true
		}
		next := td.NextAllFiltered("td").First()
		if next.Length() > 0 {
			result = htmlutil.CellText(next)
			return false
		}
		return true
	})
	return result
}
