package enums

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ProductCategory is one of the catalog sections shown on the site.
type ProductCategory string

const (
	ProductCategoryBags        ProductCategory = "バッグ類"
	ProductCategoryYogaWear    ProductCategory = "ヨガウェア"
	ProductCategoryYogaGear    ProductCategory = "ヨガ用具"
	ProductCategorySports      ProductCategory = "スポーツ・レジャー"
	ProductCategoryFunctional  ProductCategory = "機能性ウェア"
	ProductCategoryGloves      ProductCategory = "軍手と手袋"
	ProductCategoryMisc        ProductCategory = "雑貨類"
	ProductCategoryAnime       ProductCategory = "アニメ類"
	ProductCategoryAllSentinel                 = "全て"
)

var validProductCategories = []ProductCategory{
	ProductCategoryBags,
	ProductCategoryYogaWear,
	ProductCategoryYogaGear,
	ProductCategorySports,
	ProductCategoryFunctional,
	ProductCategoryGloves,
	ProductCategoryMisc,
	ProductCategoryAnime,
}

// legacyCategories maps the categories used by the first import to their current names.
var legacyCategories = map[string]ProductCategory{
	"瑜伽服":   ProductCategoryYogaWear,
	"瑜伽器具":  ProductCategoryYogaGear,
	"运动休闲类": ProductCategorySports,
	"功能性服装": ProductCategoryFunctional,
	"包类":    ProductCategoryBags,
}

var defaultFeatures = map[ProductCategory]string{
	ProductCategoryYogaWear:   "高品質な素材を使用\n快適な着心地\nヨガに最適な伸縮性\nOEM/ODM対応可能",
	ProductCategoryYogaGear:   "高品質な素材を使用\n実用性と耐久性を兼ね備えた設計\nヨガ練習に最適\nOEM/ODM対応可能",
	ProductCategorySports:     "高品質な素材を使用\n快適な着心地\nスポーツ・レジャーに最適\nOEM/ODM対応可能",
	ProductCategoryFunctional: "高品質な素材を使用\n快適な着心地\n機能性に優れた設計\nOEM/ODM対応可能",
	ProductCategoryBags:       "高品質な素材を使用\n実用性と耐久性を兼ね備えた設計\n日常使いに最適\nOEM/ODM対応可能",
	ProductCategoryMisc:       "高品質な素材を使用\n実用性と耐久性を兼ね備えた設計\n日常使いに最適\nOEM/ODM対応可能",
	ProductCategoryGloves:     "高品質な素材を使用\n実用性と耐久性を兼ね備えた設計\n作業に最適\nOEM/ODM対応可能",
	ProductCategoryAnime:      "高品質な素材を使用\n人気キャラクター商品\nファンに最適\nOEM/ODM対応可能",
}

const fallbackFeatures = "高品質な素材を使用\n実用性と耐久性を兼ね備えた設計"

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	normalized := NormalizeCategory(value)
	for _, candidate := range validProductCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductCategories returns the advertised categories in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// NormalizeCategory trims and NFC-normalizes a category so composed and
// decomposed kana compare equal.
func NormalizeCategory(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// IsAllCategory reports whether value means "no category filter".
func IsAllCategory(value string) bool {
	v := NormalizeCategory(value)
	return v == "" || strings.EqualFold(v, "all") || v == ProductCategoryAllSentinel
}

// LegacyCategory returns the current category for a legacy name.
func LegacyCategory(value string) (ProductCategory, bool) {
	c, ok := legacyCategories[NormalizeCategory(value)]
	return c, ok
}

// LegacyCategoryNames lists every legacy category name.
func LegacyCategoryNames() []string {
	out := make([]string, 0, len(legacyCategories))
	for name := range legacyCategories {
		out = append(out, name)
	}
	return out
}

// DefaultFeatures returns the seed features text for a category.
func DefaultFeatures(category string) string {
	if f, ok := defaultFeatures[ProductCategory(NormalizeCategory(category))]; ok {
		return f
	}
	return fallbackFeatures
}
