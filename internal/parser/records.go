package parser

import "strings"

// Record is one observed price: the product, its raw supermarket category,
// a strictly positive price and the observation date.
type Record struct {
	Product  string
	Category string
	Price    float64
	Date     string
}

// Placeholders used when neither the catalog nor the embedded columns can
// resolve a product.
const (
	placeholderProduct  = "Item"
	placeholderCategory = "Uncategorized"
)

// fallbackPriceColumn is probed when no header matches a price column; in
// the standard upstream layout (fecha, id, precio, ...) the price sits in
// the third column.
const fallbackPriceColumn = 2

// ParseRecords extracts price records from raw file content. The fallback
// date comes from the file name; a row-level date column containing '-' or
// '/' overrides it. Unparseable lines and non-positive prices are dropped.
// An empty result means the file carried no usable data, not an error.
func ParseRecords(content, fallbackDate string, catalog Catalog) []Record {
	delimiter := DetectDelimiter(content)
	lines := contentLines(content)
	if len(lines) < 2 {
		return nil
	}

	headers := lowerAll(SplitLine(lines[0], delimiter))

	productCol := findColumn(headers, "producto", "product")
	categoryCol := findColumn(headers, "categoria", "category")
	priceCol := findColumn(headers, "precio", "price")
	idCol := findColumn(headers, "id", "code", "sku")
	dateCol := findColumn(headers, "fecha", "date")

	var records []Record
	for _, line := range lines[1:] {
		cols := SplitLine(line, delimiter)
		if len(cols) < 2 {
			continue
		}

		price, ok := rowPrice(cols, priceCol)
		if !ok {
			continue
		}

		product, category := resolveProduct(cols, catalog, idCol, productCol, categoryCol)

		date := fallbackDate
		if dateCol != -1 && dateCol < len(cols) && cols[dateCol] != "" {
			if d := cols[dateCol]; strings.Contains(d, "-") || strings.Contains(d, "/") {
				date = d
			}
		}
		date = fixLegacyYear(date)

		records = append(records, Record{
			Product:  product,
			Category: category,
			Price:    price,
			Date:     date,
		})
	}

	return records
}

func rowPrice(cols []string, priceCol int) (float64, bool) {
	if priceCol != -1 && priceCol < len(cols) && cols[priceCol] != "" {
		price, err := ParsePrice(cols[priceCol])
		return price, err == nil
	}

	// No price header matched; probe the conventional position.
	if fallbackPriceColumn < len(cols) {
		if price, err := ParsePrice(cols[fallbackPriceColumn]); err == nil {
			return price, true
		}
	}
	return 0, false
}

// resolveProduct applies the resolution order: catalog lookup by identifier
// wins over the embedded columns, which win over the placeholders.
func resolveProduct(cols []string, catalog Catalog, idCol, productCol, categoryCol int) (string, string) {
	if catalog != nil && idCol != -1 && idCol < len(cols) && cols[idCol] != "" {
		if entry, ok := catalog[stripQuotes(cols[idCol])]; ok {
			return entry.ProductName, entry.Category
		}
	}

	product := placeholderProduct
	category := placeholderCategory
	if productCol != -1 && productCol < len(cols) && cols[productCol] != "" {
		product = cols[productCol]
	}
	if categoryCol != -1 && categoryCol < len(cols) && cols[categoryCol] != "" {
		category = cols[categoryCol]
	}
	return product, category
}

// fixLegacyYear corrects a known data-entry defect where the year digits of
// some 2025 dates were corrupted to "0025". Kept as an isolated step so it
// can be retired with the bad data.
func fixLegacyYear(date string) string {
	if strings.HasPrefix(date, "0025") {
		return "2025" + date[4:]
	}
	return date
}
