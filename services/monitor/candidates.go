package monitor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"bidwatch/lib/htmlutil"
	"bidwatch/lib/scrapers/epoint"

	"github.com/PuerkitoBio/goquery"
)

// CandidateData is the structured content of a bid-candidate publicity
// notice.
type CandidateData struct {
	ProjectName     string   `json:"project_name"`
	PublicityPeriod string   `json:"publicity_period"`
	Bidders         []string `json:"bidders"`
	Prices          []string `json:"prices"`
	FullURL         string   `json:"full_url"`
}

type NoticeSummary struct {
	Title    string `json:"title"`
	InfoDate string `json:"infodate"`
}

// CandidateRecord links the parsed candidate data back to its raw notice.
type CandidateRecord struct {
	InfoID     string        `json:"infoid"`
	InfoURL    string        `json:"infourl"`
	ParsedData CandidateData `json:"parsed_data"`
	RawData    NoticeSummary `json:"raw_data"`
}

var publicityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`公示(?:期|时间)[：:为]\s*(.+?至.+?)\n`),
	regexp.MustCompile(`公示[期时为](.+?至.+?)\n`),
	regexp.MustCompile(`公示[期时为](.+?)\n`),
}

var (
	rankedCandidatePattern = regexp.MustCompile(`第[一二三四五]名[：:]\s*([^\n（]+)`)
	companyNamePattern     = regexp.MustCompile(`[（(]([\p{Han}\w]{4,}(?:有限公司|公司|集团))`)
	labeledPricePattern    = regexp.MustCompile(`(?:报价|投标价|下浮率)[：:]\s*([\d%.]+)`)
	barePricePattern       = regexp.MustCompile(`[\d,]+\.?\d*\s*[元%]`)
)

// column filters: header rows repeat domain words that are not bidder
// names, and price cells are short strings with a unit or percent sign
var bidderExcludeWords = []string{"下浮率", "质量", "目标", "设计", "施工", "标准"}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ParseCandidates extracts the candidate list of a publicity notice.
// The platform renders these as tables with inconsistent layouts, so the
// parser locates columns by header keywords and falls back to regex
// extraction over the plain text when no usable table exists.
func ParseCandidates(n epoint.Notice, baseURL string) CandidateData {
	projectName := strings.TrimSpace(strings.ReplaceAll(n.CustomTitle, "中标候选人公示", ""))

	fullURL := n.InfoURL
	if strings.HasPrefix(n.InfoURL, "/") {
		fullURL = strings.TrimSuffix(baseURL, "/") + n.InfoURL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(n.InfoContent))
	if err != nil {
		return CandidateData{ProjectName: projectName, FullURL: fullURL}
	}

	fullText := doc.Text()

	publicityPeriod := ""
	for _, pattern := range publicityPatterns {
		match := pattern.FindStringSubmatch(fullText)
		if match != nil {
			publicityPeriod = strings.TrimSpace(match[1])
			break
		}
	}

	var bidders, prices []string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		b, p := parseCandidateTable(table)
		bidders = append(bidders, b...)
		prices = append(prices, p...)
	})

	if len(bidders) == 0 {
		for _, match := range rankedCandidatePattern.FindAllStringSubmatch(fullText, -1) {
			bidders = append(bidders, strings.TrimSpace(match[1]))
		}
	}
	if len(bidders) == 0 {
		seen := map[string]bool{}
		for _, match := range companyNamePattern.FindAllStringSubmatch(fullText, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				bidders = append(bidders, match[1])
			}
		}
	}

	if len(prices) == 0 {
		for _, match := range labeledPricePattern.FindAllStringSubmatch(fullText, -1) {
			prices = append(prices, strings.TrimSpace(match[1]))
		}
		if len(prices) == 0 {
			for _, match := range barePricePattern.FindAllString(fullText, -1) {
				prices = append(prices, strings.TrimSpace(match))
			}
		}
	}

	return CandidateData{
		ProjectName:     projectName,
		PublicityPeriod: publicityPeriod,
		Bidders:         bidders,
		Prices:          prices,
		FullURL:         fullURL,
	}
}

func parseCandidateTable(table *goquery.Selection) (bidders, prices []string) {
	var headerRow *goquery.Selection
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := row.Text()
		if strings.Contains(text, "中标候选人") ||
			strings.Contains(text, "投标人") ||
			strings.Contains(text, "报价") {
			headerRow = row
			return false
		}
		return true
	})
	if headerRow == nil {
		return nil, nil
	}

	headerCells := htmlutil.RowCells(headerRow, "th, td")

	bidderCol := -1
	for i, text := range headerCells {
		if strings.Contains(text, "候选人") ||
			strings.Contains(text, "投标人") ||
			strings.Contains(text, "单位名称") {
			bidderCol = i
			break
		}
	}
	priceCol := -1
	for i, text := range headerCells {
		if strings.Contains(text, "报价") ||
			strings.Contains(text, "金额") ||
			strings.Contains(text, "下浮率") {
			priceCol = i
			break
		}
	}
	if bidderCol < 0 && priceCol < 0 {
		return nil, nil
	}

	headerRow.NextAll().Each(func(_ int, row *goquery.Selection) {
		cells := htmlutil.RowCells(row, "td")
		if len(cells) <= max(bidderCol, priceCol) {
			return
		}

		if bidderCol >= 0 {
			bidder := cells[bidderCol]
			if utf8.RuneCountInString(bidder) > 2 && !containsAny(bidder, bidderExcludeWords) {
				bidders = append(bidders, bidder)
			}
		}
		if priceCol >= 0 {
			price := cells[priceCol]
			if containsAny(price, []string{"元", "%", ".", "万"}) && utf8.RuneCountInString(price) < 20 {
				prices = append(prices, price)
			}
		}
	})

	return bidders, prices
}
