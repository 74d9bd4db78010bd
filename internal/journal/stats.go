// Package journal は日記エントリの作成・検索・集計を提供する。
package journal

import (
	"math"
	"time"

	"github.com/hitoshi/soullog/internal/model"
)

// CategoryCounts はカテゴリごとのエントリ数を返す。
// エントリの無いカテゴリも0として含む。
func CategoryCounts(entries []*model.JournalEntry) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, c := range model.AllCategories() {
		counts[c] = 0
	}
	for _, e := range entries {
		counts[e.Category]++
	}
	return counts
}

// TypeCounts は種類ごとのエントリ数を返す。
func TypeCounts(entries []*model.JournalEntry) map[model.EntryType]int {
	counts := make(map[model.EntryType]int, len(model.EntryTypes))
	for _, t := range model.EntryTypes {
		counts[t] = 0
	}
	for _, e := range entries {
		counts[e.Type]++
	}
	return counts
}

// MostCommonCategory は全カテゴリの中で最も多いカテゴリを返す。
// 同数の場合は正規の宣言順で先のものを返し、全て0ならCategoryNoDataを返す。
func MostCommonCategory(entries []*model.JournalEntry) model.Category {
	return mostCommon(CategoryCounts(entries), model.AllCategories())
}

// MostCommonCategoryOf は指定種類のカテゴリに限定してMostCommonCategoryを求める。
func MostCommonCategoryOf(entries []*model.JournalEntry, t model.EntryType) model.Category {
	return mostCommon(CategoryCounts(entries), model.CategoriesOf(t))
}

func mostCommon(counts map[model.Category]int, order []model.Category) model.Category {
	best, bestCount := model.CategoryNoData, 0
	for _, c := range order {
		// 厳密に大きい場合のみ更新するので、同数なら先に宣言されたものが残る
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// HydrationPercent は水分摂取目標に対する達成率（0〜100）を返す。
// 負の値は0として扱い、目標超過は100で打ち止める。
func HydrationPercent(progress, goal int) int {
	progress = max(progress, 0)
	goal = max(goal, 0)
	if goal == 0 {
		return 0
	}
	// intへ変換する前に上限を適用する。大きなprogressでも桁あふれしない。
	return int(math.Min(100, math.Round(float64(progress)/float64(goal)*100)))
}

// StreakDays はrefの日から遡って、エントリのある暦日が連続する日数を返す。
// refの日にエントリが無ければ0を返す（前日から数え始めることはしない）。
// 暦日はrefのロケーションで判定する。
func StreakDays(entries []*model.JournalEntry, ref time.Time) int {
	loc := ref.Location()
	days := make(map[civilDay]struct{}, len(entries))
	for _, e := range entries {
		days[dayOf(e.CreatedAt, loc)] = struct{}{}
	}

	streak := 0
	y, m, d := ref.Date()
	// 正午を起点にするとDST切り替え日でも日付がずれない
	cursor := time.Date(y, m, d, 12, 0, 0, 0, loc)
	for {
		if _, ok := days[dayOf(cursor, loc)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// MindfulToday はrefと同じ暦日のエントリが1件でもあればtrueを返す。
func MindfulToday(entries []*model.JournalEntry, ref time.Time) bool {
	today := dayOf(ref, ref.Location())
	for _, e := range entries {
		if dayOf(e.CreatedAt, ref.Location()) == today {
			return true
		}
	}
	return false
}

// AveragePerWeek は件数を7で割り小数1桁に丸めた値を返す。最小値は1。
func AveragePerWeek(n int) float64 {
	return math.Max(1, math.Round(float64(n)/7*10)/10)
}

// FilterByType は指定種類のエントリだけを順序を保って返す。
func FilterByType(entries []*model.JournalEntry, t model.EntryType) []*model.JournalEntry {
	var out []*model.JournalEntry
	for _, e := range entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) civilDay {
	y, m, d := t.In(loc).Date()
	return civilDay{y, m, d}
}
