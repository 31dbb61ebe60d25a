package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// PrintCatalog writes the catalog as an indented tree
func PrintCatalog(w io.Writer, items []reportapi.CatalogItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(empty)"))
		return
	}
	printItems(w, items, 0)
}

func printItems(w io.Writer, items []reportapi.CatalogItem, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, item := range items {
		switch item.Type {
		case reportapi.CatalogFolder:
			fmt.Fprintf(w, "%s%s\n", indent, color.New(color.FgBlue, color.Bold).Sprint(item.Name+"/"))
		case reportapi.CatalogReport:
			fmt.Fprintf(w, "%s• %s\n", indent, item.Name)
		default:
			fmt.Fprintf(w, "%s%s %s\n", indent, item.Name, mutedStyle.Render(item.Path))
		}
		if len(item.Items) > 0 {
			printItems(w, item.Items, depth+1)
		}
	}
}

// PrintFormats writes the supported export formats
func PrintFormats(w io.Writer, formats []reportapi.ExportFormat) {
	for _, f := range formats {
		fmt.Fprintf(w, "%-6s %-24s .%s\n", f.Format, f.Name, strings.TrimPrefix(f.Extension, "."))
	}
}

// PrintOutline writes the document outline
func PrintOutline(w io.Writer, nodes []reportapi.OutlineNode) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", n.Level), n.Caption,
			mutedStyle.Render(fmt.Sprintf("p.%d", n.Position.PageIndex+1)))
		PrintOutline(w, n.Children)
	}
}
