package model

import (
	"fmt"
	"time"
)

// EntryType は日記エントリの種類（mind / body / soul）。
type EntryType string

const (
	EntryTypeMind EntryType = "mind"
	EntryTypeBody EntryType = "body"
	EntryTypeSoul EntryType = "soul"
)

// EntryTypes は正規の宣言順。
var EntryTypes = []EntryType{EntryTypeMind, EntryTypeBody, EntryTypeSoul}

// Category はエントリ種類ごとのカテゴリ。mindでは気分を表す。
type Category string

const (
	CategoryHappy   Category = "happy"
	CategoryNeutral Category = "neutral"
	CategorySad     Category = "sad"

	CategoryExercise  Category = "exercise"
	CategoryNutrition Category = "nutrition"
	CategoryHydration Category = "hydration"

	CategoryMeditation Category = "meditation"
	CategoryGratitude  Category = "gratitude"
	CategoryReflection Category = "reflection"

	// CategoryNoData は集計対象が存在しない場合の番兵値。
	CategoryNoData Category = "no_data"
)

// categoriesByType は種類ごとのカテゴリを宣言順で保持する。
// 最頻カテゴリの同率判定はこの順序に従う。
var categoriesByType = map[EntryType][]Category{
	EntryTypeMind: {CategoryHappy, CategoryNeutral, CategorySad},
	EntryTypeBody: {CategoryExercise, CategoryNutrition, CategoryHydration},
	EntryTypeSoul: {CategoryMeditation, CategoryGratitude, CategoryReflection},
}

// CategoriesOf は指定種類のカテゴリを宣言順で返す。
func CategoriesOf(t EntryType) []Category {
	return append([]Category(nil), categoriesByType[t]...)
}

// AllCategories は全カテゴリを正規順（mind → body → soul）で返す。
func AllCategories() []Category {
	var all []Category
	for _, t := range EntryTypes {
		all = append(all, categoriesByType[t]...)
	}
	return all
}

// Valid は種類が既知の値かどうかを返す。
func (t EntryType) Valid() bool {
	_, ok := categoriesByType[t]
	return ok
}

// Allows はカテゴリがこの種類に属するかどうかを返す。
func (t EntryType) Allows(c Category) bool {
	for _, known := range categoriesByType[t] {
		if known == c {
			return true
		}
	}
	return false
}

// JournalEntry は1件の日記エントリ。作成後は変更しない。
type JournalEntry struct {
	ID        string
	UserID    string
	Type      EntryType
	Category  Category
	Content   string
	CreatedAt time.Time
}

// Title は一覧・検索・エクスポートで使う表示タイトルを返す。
func (e *JournalEntry) Title() string {
	switch e.Type {
	case EntryTypeMind:
		return fmt.Sprintf("Mind check-in (%s)", e.Category)
	case EntryTypeBody:
		return fmt.Sprintf("Body %s update", e.Category)
	case EntryTypeSoul:
		return fmt.Sprintf("Soul %s reflection", e.Category)
	default:
		return string(e.Category)
	}
}
