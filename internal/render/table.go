// Package render formats ledger contents and balances as chat text.
package render

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/mmynk/moneybot/internal/models"
)

// DateLayout is how entry timestamps appear in the full table.
const DateLayout = "02.01.2006 15:04"

// TableFileName is the document name used for the full table.
const TableFileName = "table.txt"

type column struct {
	header string
	right  bool
}

// Table renders every entry with its per-group shares and date, numbered
// from zero.
func Table(entries []models.Entry, groups []string) string {
	cols := []column{{header: "", right: true}, {header: "payer"}, {header: "buy"}, {header: "price", right: true}}
	for _, g := range groups {
		cols = append(cols, column{header: g, right: true})
	}
	cols = append(cols, column{header: "date"})

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		row := []string{strconv.Itoa(i), e.Payer, e.Description, Amount(e.Total)}
		for _, g := range groups {
			row = append(row, Amount(e.Shares[g]))
		}
		row = append(row, e.RecordedAt.Format(DateLayout))
		rows = append(rows, row)
	}
	return orgTable(cols, rows)
}

// TableMin renders payer, description and price only.
func TableMin(entries []models.Entry) string {
	cols := []column{{header: "payer"}, {header: "buy"}, {header: "price", right: true}}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Payer, e.Description, Amount(e.Total)})
	}
	return orgTable(cols, rows)
}

// Amount formats money rounded to cents without trailing zeros.
func Amount(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// orgTable lays out rows as a bordered text table: a header, a "+---+" rule,
// then one line per row. Widths are display widths, so wide runes in
// descriptions keep the columns aligned.
func orgTable(cols []column, rows [][]string) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)

	headers := make([]string, len(cols))
	aligns := make([]int, len(cols))
	for i, c := range cols {
		headers[i] = c.header
		aligns[i] = tablewriter.ALIGN_LEFT
		if c.right {
			aligns[i] = tablewriter.ALIGN_RIGHT
		}
	}

	tw.SetHeader(headers)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment(aligns)
	tw.SetAutoWrapText(false)
	tw.SetBorders(tablewriter.Border{Left: true, Right: true})
	tw.SetCenterSeparator("+")
	tw.SetColumnSeparator("|")
	tw.SetRowSeparator("-")
	tw.AppendBulk(rows)
	tw.Render()

	return strings.TrimSuffix(b.String(), "\n")
}
