package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSelectors(t *testing.T) {
	got := parseSelectors(" Amazon = span.a-price, span.price ;blinkit=div[data-price];broken; =x")
	require.Equal(t, map[string]string{
		"amazon":  "span.a-price, span.price",
		"blinkit": "div[data-price]",
	}, got)
	require.Empty(t, parseSelectors(""))
}
