package service

import (
	"strings"

	"stocktrack-api/internal/model"
)

// normalizeName lowercases and trims an item name for matching.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchStockItem returns the first stock item whose normalized name
// equals the normalized lookup name. Matching is exact after
// normalization; there is no fuzzy matching and no uniqueness check, so
// when several items share a normalized name the first in iteration
// order wins.
func MatchStockItem(name string, items []model.StockItem) (*model.StockItem, bool) {
	target := normalizeName(name)
	for i := range items {
		if normalizeName(items[i].Name) == target {
			return &items[i], true
		}
	}
	return nil, false
}
