package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	content := "id,producto,categoria\n" +
		"\"100\",Arroz Grano de Oro,Abarrotes\n" +
		"200,Leche Pil 1L,Lácteos y Derivados\n" +
		",Sin Codigo,Abarrotes\n" +
		"300,Yogurt\n"

	catalog := ParseCatalog(content)
	require.Len(t, catalog, 2)

	assert.Equal(t, CatalogEntry{ID: "100", ProductName: "Arroz Grano de Oro", Category: "Abarrotes"}, catalog["100"])
	assert.Equal(t, "Lácteos y Derivados", catalog["200"].Category)

	// Empty identifier and short rows are skipped.
	_, ok := catalog[""]
	assert.False(t, ok)
	_, ok = catalog["300"]
	assert.False(t, ok)
}

func TestParseCatalogDuplicateLastWins(t *testing.T) {
	content := "codigo,nombre,grupo\n" +
		"100,Arroz Viejo,Abarrotes\n" +
		"100,Arroz Nuevo,Granos y Hortalizas\n"

	catalog := ParseCatalog(content)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Arroz Nuevo", catalog["100"].ProductName)
	assert.Equal(t, "Granos y Hortalizas", catalog["100"].Category)
}

func TestParseCatalogHeaderFallbackColumns(t *testing.T) {
	// No recognizable header: columns 0, 1, 2 are assumed.
	content := "a;b;c\n900;Pan;Panadería\n"
	catalog := ParseCatalog(content)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Pan", catalog["900"].ProductName)
	assert.Equal(t, "Panadería", catalog["900"].Category)
}

func TestParseCatalogTooShort(t *testing.T) {
	assert.Empty(t, ParseCatalog("id,producto,categoria\n"))
	assert.Empty(t, ParseCatalog(""))
}
