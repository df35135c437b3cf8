package cache

import (
	"strconv"
	"strings"
)

const (
	prefixProducts = "catalog:products:"
	prefixCompare  = "compare:basket:"
)

// KeyProductList keys a product search page.
func KeyProductList(query, category string, page, limit int) string {
	return prefixProducts + "list:" + strings.ToLower(strings.TrimSpace(query)) + "|" +
		strings.ToLower(strings.TrimSpace(category)) + "|" + strconv.Itoa(page) + "|" + strconv.Itoa(limit)
}

// KeyProduct keys a product detail payload.
func KeyProduct(id string) string {
	return prefixProducts + "detail:" + id
}

// ProductsPrefix matches every catalog key; price refreshes invalidate it.
func ProductsPrefix() string {
	return prefixProducts
}

// KeyCompare keys the comparison of one basket version. Bumping the version
// on every basket mutation makes older entries unreachable.
func KeyCompare(basketID string, version int64) string {
	return prefixCompare + basketID + ":v" + strconv.FormatInt(version, 10)
}

// ComparePrefix matches every cached comparison; price refreshes invalidate it.
func ComparePrefix() string {
	return prefixCompare
}
