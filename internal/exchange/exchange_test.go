package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher map[string]string

func (f fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	content, ok := f[url]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func TestParse(t *testing.T) {
	content := "fecha,compra\n" +
		"2025-05-01,13.50\n" +
		"2025-05-02,13.85\n" +
		"garbage line\n" +
		"notadate,14.00\n"

	rates := Parse(content)
	require.Len(t, rates, 2)
	assert.Equal(t, Rate{Date: "2025-05-01", Value: 13.50}, rates[0])
	assert.Equal(t, Rate{Date: "2025-05-02", Value: 13.85}, rates[1])
}

func TestLoadFallsThroughCandidates(t *testing.T) {
	fetcher := fakeFetcher{
		"first":  "<html>branch was renamed, have some markup</html>",
		"second": "fecha,compra\n2025-05-01,13.50\n",
	}

	rates, err := Load(context.Background(), fetcher, []string{"missing", "first", "second"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.InDelta(t, 13.50, rates[0].Value, 1e-9)
}

func TestLoadAllCandidatesFail(t *testing.T) {
	_, err := Load(context.Background(), fakeFetcher{}, []string{"a", "b"})
	assert.Error(t, err)
}
