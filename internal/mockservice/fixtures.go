package mockservice

import (
	"strings"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// reportDef is one report the mock service can load
type reportDef struct {
	name       string
	parameters []reportapi.Parameter
	pages      [][]string
	outline    []reportapi.OutlineNode
	bookmarks  map[string]reportapi.DocumentPosition
}

// fileDef is a report file in the catalog. FlexReport files hold several
// reports; other files hold exactly one under the empty name.
type fileDef struct {
	path    string
	reports map[string]*reportDef
	order   []string
}

var exportFormats = []reportapi.ExportFormat{
	{Format: "pdf", Name: "PDF", Extension: "pdf"},
	{Format: "html", Name: "HTML", Extension: "html"},
	{Format: "csv", Name: "Comma-separated values", Extension: "csv"},
	{Format: "txt", Name: "Plain text", Extension: "txt"},
}

var exportContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"html": "text/html; charset=utf-8",
	"csv":  "text/csv; charset=utf-8",
	"txt":  "text/plain; charset=utf-8",
}

func defaultFiles() []*fileDef {
	salesByRegion := &reportDef{
		name: "SalesByRegion",
		parameters: []reportapi.Parameter{
			{
				Name:       "region",
				DataType:   reportapi.DataTypeString,
				MultiValue: true,
				Prompt:     "Region",
				AllowedValues: []reportapi.AllowedValue{
					{Name: "North", Value: "North"},
					{Name: "South", Value: "South"},
					{Name: "East", Value: "East"},
					{Name: "West", Value: "West"},
				},
			},
			{Name: "from", DataType: reportapi.DataTypeDateTime, Prompt: "From", Value: "2024-01-01T00:00:00Z"},
			{Name: "top", DataType: reportapi.DataTypeInteger, Prompt: "Top N", Value: float64(10)},
			{Name: "includeReturns", DataType: reportapi.DataTypeBoolean, Nullable: true, Prompt: "Include returns"},
			{Name: "currency", DataType: reportapi.DataTypeString, Hidden: true, Prompt: "Currency", Value: "USD"},
		},
		pages: [][]string{
			{"Sales by Region", "North 1200.50", "South 980.00"},
			{"East 1430.25", "West 1105.75"},
			{"Totals", "All regions 4716.50"},
		},
		outline: []reportapi.OutlineNode{
			{Caption: "Regions", Level: 0, Position: reportapi.DocumentPosition{PageIndex: 0}, Children: []reportapi.OutlineNode{
				{Caption: "North", Level: 1, Position: reportapi.DocumentPosition{PageIndex: 0}},
				{Caption: "East", Level: 1, Position: reportapi.DocumentPosition{PageIndex: 1}},
			}},
			{Caption: "Totals", Level: 0, Position: reportapi.DocumentPosition{PageIndex: 2}},
		},
		bookmarks: map[string]reportapi.DocumentPosition{
			"totals": {PageIndex: 2, PageBounds: &reportapi.Rect{X: 0, Y: 0, Width: 595, Height: 842}},
		},
	}
	summary := &reportDef{
		name:  "Summary",
		pages: [][]string{{"Summary", "Revenue 4716.50", "Orders 312"}},
		outline: []reportapi.OutlineNode{
			{Caption: "Summary", Level: 0, Position: reportapi.DocumentPosition{PageIndex: 0}},
		},
	}
	inventory := &reportDef{
		parameters: []reportapi.Parameter{
			{Name: "warehouse", DataType: reportapi.DataTypeString, Prompt: "Warehouse"},
			{Name: "asOf", DataType: reportapi.DataTypeDate, Nullable: true, Prompt: "As of"},
		},
		pages: [][]string{
			{"Inventory", "Widgets 120", "Gadgets 45"},
			{"Sprockets 300"},
		},
	}

	return []*fileDef{
		{
			path:    "Reports/Sales.flxr",
			reports: map[string]*reportDef{"SalesByRegion": salesByRegion, "Summary": summary},
			order:   []string{"SalesByRegion", "Summary"},
		},
		{
			path:    "Reports/Inventory.rdl",
			reports: map[string]*reportDef{"": inventory},
			order:   []string{""},
		},
	}
}

// buildCatalog turns the file list into a folder tree
func buildCatalog(files []*fileDef) []reportapi.CatalogItem {
	var root []reportapi.CatalogItem
	for _, f := range files {
		segments := strings.Split(f.path, "/")
		level := &root
		for i, seg := range segments[:len(segments)-1] {
			folderPath := strings.Join(segments[:i+1], "/")
			idx := -1
			for j := range *level {
				if (*level)[j].Path == folderPath {
					idx = j
					break
				}
			}
			if idx < 0 {
				*level = append(*level, reportapi.CatalogItem{Name: seg, Path: folderPath, Type: reportapi.CatalogFolder})
				idx = len(*level) - 1
			}
			level = &(*level)[idx].Items
		}

		item := reportapi.CatalogItem{Name: segments[len(segments)-1], Path: f.path}
		if reportapi.IsFlexReport(f.path) {
			item.Type = reportapi.CatalogFile
			for _, name := range f.order {
				item.Items = append(item.Items, reportapi.CatalogItem{
					Name: name,
					Path: f.path + "/" + name,
					Type: reportapi.CatalogReport,
				})
			}
		} else {
			item.Type = reportapi.CatalogReport
		}
		*level = append(*level, item)
	}
	return root
}

// findCatalog returns the children of the item at itemPath
func findCatalog(items []reportapi.CatalogItem, itemPath string) ([]reportapi.CatalogItem, bool) {
	if itemPath == "" {
		return items, true
	}
	for _, it := range items {
		if it.Path == itemPath {
			return it.Items, true
		}
		if strings.HasPrefix(itemPath, it.Path+"/") {
			return findCatalog(it.Items, itemPath)
		}
	}
	return nil, false
}

// shallow drops nested items below the first level
func shallow(items []reportapi.CatalogItem) []reportapi.CatalogItem {
	out := make([]reportapi.CatalogItem, len(items))
	for i, it := range items {
		it.Items = nil
		out[i] = it
	}
	return out
}
