package model

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenURIEmbedsMetadata(t *testing.T) {
	record := &PropertyRecord{
		TokenID:  7,
		Length:   40,
		Width:    25,
		X:        -12,
		Y:        88,
		Category: CategoryHouse,
	}

	uri := TokenURI(record)
	require.True(t, strings.HasPrefix(uri, "data:application/json;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:application/json;base64,"))
	require.NoError(t, err)

	var doc struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		Attributes  []struct {
			TraitType string      `json:"trait_type"`
			Value     interface{} `json:"value"`
		} `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	require.Equal(t, "Estate #7", doc.Name)
	require.Contains(t, doc.Description, "HOUSE")
	require.Contains(t, doc.Description, "(-12, 88)")
	require.True(t, strings.HasPrefix(doc.Image, "data:image/svg+xml;base64,"))

	attrs := make(map[string]interface{}, len(doc.Attributes))
	for _, a := range doc.Attributes {
		attrs[a.TraitType] = a.Value
	}
	require.Equal(t, "HOUSE", attrs["category"])
	require.EqualValues(t, 40, attrs["length"])
	require.EqualValues(t, 25, attrs["width"])
	require.EqualValues(t, -12, attrs["x"])
	require.EqualValues(t, 88, attrs["y"])
}

func TestParseCategory(t *testing.T) {
	cases := map[string]PropertyCategory{
		"LAND":      CategoryLand,
		"HOUSE":     CategoryHouse,
		"APARTMENT": CategoryApartment,
	}
	for in, want := range cases {
		got, ok := ParseCategory(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}

	_, ok := ParseCategory("CASTLE")
	require.False(t, ok)
}
