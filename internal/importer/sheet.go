package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/01moynul/seller-console/internal/models"
)

// ErrUnsupportedFormat is returned for files that are not xlsx, csv or json.
// Legacy binary .xls workbooks are rejected here; excelize only reads OOXML.
var ErrUnsupportedFormat = errors.New("please upload a valid Excel file (.xlsx)")

// ParseFile decodes a spreadsheet into raw rows keyed by header name.
func ParseFile(name string, r io.Reader) ([]any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(r)
	case ".csv":
		return parseCSV(r)
	case ".json":
		return parseJSON(r)
	}
	return nil, ErrUnsupportedFormat
}

func parseXLSX(r io.Reader) ([]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// Always the first sheet
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return tableRows(excelRows), nil
}

func parseCSV(r io.Reader) ([]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return tableRows(records), nil
}

func parseJSON(r io.Reader) ([]any, error) {
	var rows []any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON rows: %w", err)
	}
	return rows, nil
}

// tableRows maps each data line onto the header line. Blank lines are dropped.
func tableRows(table [][]string) []any {
	if len(table) == 0 {
		return nil
	}
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]any, 0, len(table)-1)
	for _, line := range table[1:] {
		row := make(map[string]string, len(headers))
		blank := true
		for i, value := range line {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = value
			if strings.TrimSpace(value) != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}

// ExportSheet is the sheet name used for exports.
const ExportSheet = "Products"

// WriteWorkbook lays products out one variant per line using the import
// column vocabulary, so an export can be imported again.
func WriteWorkbook(products []models.Product) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, col := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ExportSheet, cell, col)
		f.SetCellStyle(ExportSheet, cell, cell, headerStyle)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(ExportSheet, colName, colName, 20)
	}

	line := 2
	for i := range products {
		for _, values := range exportLines(&products[i]) {
			cell, _ := excelize.CoordinatesToCellName(1, line)
			if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
				f.Close()
				return nil, fmt.Errorf("write line %d: %w", line, err)
			}
			line++
		}
	}
	return f, nil
}

func exportLines(p *models.Product) [][]any {
	main := p.MainImageURL
	var gallery []string
	for _, img := range p.ImageURLs {
		if img.IsMain {
			if main == "" {
				main = img.URL
			}
			continue
		}
		gallery = append(gallery, img.URL)
	}
	sub := ""
	if p.SubCategory != nil {
		sub = p.SubCategory.ID
	}

	base := []any{
		p.SKU, p.Name, p.Description, p.Brand, p.HSNCode, p.Owner(), p.ProductTag,
		p.Category.ID, sub, main, strings.Join(gallery, "|"), p.VideoURL,
	}

	variants := p.Variants
	if len(variants) == 0 {
		variants = []models.Variant{{Stock: p.Stock}}
	}
	lines := make([][]any, 0, len(variants))
	for _, v := range variants {
		offer := ""
		if v.OfferPrice != nil {
			offer = strconv.FormatFloat(*v.OfferPrice, 'f', -1, 64)
		}
		line := append(append([]any{}, base...),
			v.Color, v.Size, strconv.FormatFloat(v.Price, 'f', -1, 64), offer, strconv.Itoa(v.Stock))
		lines = append(lines, line)
	}
	return lines
}
