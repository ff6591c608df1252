package parser

// CatalogEntry resolves a product identifier to its canonical name and raw
// category.
type CatalogEntry struct {
	ID          string
	ProductName string
	Category    string
}

// Catalog is keyed by quote-stripped product identifier. A nil catalog is a
// legitimate state: callers fall back to the columns embedded in each file.
type Catalog map[string]CatalogEntry

// Default column positions when the catalog header matches nothing.
const (
	catalogDefaultIDColumn   = 0
	catalogDefaultNameColumn = 1
	catalogDefaultCatColumn  = 2
)

// ParseCatalog parses catalog text into an identifier lookup table. Rows
// with too few columns or an empty identifier are skipped; duplicate
// identifiers are resolved last-wins.
func ParseCatalog(content string) Catalog {
	catalog := Catalog{}

	delimiter := DetectDelimiter(content)
	lines := contentLines(content)
	if len(lines) < 2 {
		return catalog
	}

	headers := lowerAll(SplitLine(lines[0], delimiter))

	idCol := findColumn(headers, "id", "code")
	nameCol := findColumn(headers, "producto", "nombre")
	catCol := findColumn(headers, "categoria", "grupo")
	if idCol == -1 {
		idCol = catalogDefaultIDColumn
	}
	if nameCol == -1 {
		nameCol = catalogDefaultNameColumn
	}
	if catCol == -1 {
		catCol = catalogDefaultCatColumn
	}

	required := idCol
	if nameCol > required {
		required = nameCol
	}
	if catCol > required {
		required = catCol
	}

	for _, line := range lines[1:] {
		cols := SplitLine(line, delimiter)
		if len(cols) <= required {
			continue
		}

		id := stripQuotes(cols[idCol])
		if id == "" {
			continue
		}

		name := cols[nameCol]
		if name == "" {
			name = "Unknown"
		}
		category := cols[catCol]
		if category == "" {
			category = "Unknown"
		}

		catalog[id] = CatalogEntry{ID: id, ProductName: name, Category: category}
	}

	return catalog
}
