package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CellText returns the trimmed text content of a table cell selection.
func CellText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// RowCells returns the trimmed text of each cell in a table row,
// matching the given cell selector ("td" or "th, td").
func RowCells(row *goquery.Selection, cellSelector string) []string {
	var cells []string
	row.Find(cellSelector).Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, CellText(cell))
	})
	return cells
}
