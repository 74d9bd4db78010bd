package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/soullog/internal/model"
	"github.com/hitoshi/soullog/internal/repository"
	"github.com/hitoshi/soullog/internal/security"
)

// 水分摂取目標の既定値と下限（杯数）
const (
	DefaultHydrationGoal = 8
	MinHydrationGoal     = 4
)

// CreateEntryInput はエントリ作成の入力。
type CreateEntryInput struct {
	Type     string `json:"type" validate:"required,oneof=mind body soul"`
	Category string `json:"category" validate:"required"`
	Content  string `json:"content" validate:"required,max=5000"`
}

// CreatedEntry は作成されたエントリとコーチングメッセージ。
type CreatedEntry struct {
	Entry    *model.JournalEntry
	Feedback string
}

// ListQuery は一覧取得の条件。
type ListQuery struct {
	Type  string // "all" または空で全種類
	Query string // タイトル・本文・カテゴリの部分一致（大文字小文字を区別しない）
}

// ExportEntry はエクスポートファイルの1件分。
type ExportEntry struct {
	ID        string          `json:"id"`
	Type      model.EntryType `json:"type"`
	Category  model.Category  `json:"category"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Export はエクスポート結果。
type Export struct {
	Filename string
	Entries  []ExportEntry
}

// SummaryQuery は統計取得の条件。
type SummaryQuery struct {
	HydrationProgress int
	HydrationGoal     int // 0の場合は既定値
	Location          *time.Location
}

// Totals は種類別の件数。
type Totals struct {
	All  int `json:"all"`
	Mind int `json:"mind"`
	Body int `json:"body"`
	Soul int `json:"soul"`
}

// MindSummary はmindエントリの統計。
type MindSummary struct {
	Counts         map[model.Category]int `json:"counts"`
	MostCommonMood model.Category         `json:"mostCommonMood"`
	MindfulToday   bool                   `json:"mindfulToday"`
	AveragePerWeek float64                `json:"averagePerWeek"`
	TotalEntries   int                    `json:"totalEntries"`
}

// BodySummary はbodyエントリの統計。
type BodySummary struct {
	Counts            map[model.Category]int `json:"counts"`
	HydrationProgress int                    `json:"hydrationProgress"`
	HydrationGoal     int                    `json:"hydrationGoal"`
	HydrationPercent  int                    `json:"hydrationPercent"`
}

// SoulSummary はsoulエントリの統計。
type SoulSummary struct {
	Counts      map[model.Category]int `json:"counts"`
	StreakDays  int                    `json:"streakDays"`
	Affirmation string                 `json:"affirmation"`
}

// Summary はGET /api/statsのレスポンス。
type Summary struct {
	Totals      Totals      `json:"totals"`
	Mind        MindSummary `json:"mind"`
	Body        BodySummary `json:"body"`
	Soul        SoulSummary `json:"soul"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Service は日記エントリのビジネスロジックを提供する。
type Service struct {
	repo      repository.EntryRepository
	sanitizer security.TextSanitizerService
	validate  *validator.Validate
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.EntryRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
}

// Create は入力を検証してエントリを保存し、コーチングメッセージを付けて返す。
// 検証エラーの場合はストアにアクセスしない。
func (s *Service) Create(ctx context.Context, userID string, input CreateEntryInput) (*CreatedEntry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, model.NewValidationError(validationMessage(err))
	}

	entryType := model.EntryType(input.Type)
	category := model.Category(strings.ToLower(strings.TrimSpace(input.Category)))
	if !entryType.Allows(category) {
		return nil, model.NewValidationError(
			fmt.Sprintf("category %q is not valid for %s entries", input.Category, entryType))
	}

	content := s.sanitizer.Sanitize(input.Content)
	if content == "" {
		return nil, model.NewValidationError("content must not be empty")
	}

	entry := &model.JournalEntry{
		UserID:   userID,
		Type:     entryType,
		Category: category,
		Content:  content,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	slog.Info("journal entry created",
		slog.String("user_id", userID),
		slog.String("type", string(entryType)),
		slog.String("category", string(category)),
	)

	return &CreatedEntry{Entry: entry, Feedback: Feedback(category, content)}, nil
}

// List はユーザーのエントリを新しい順で返す。
func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]*model.JournalEntry, error) {
	filter, err := parseTypeFilter(q.Type)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	return Search(entries, q.Query), nil
}

// Search はタイトル・本文・カテゴリに部分文字列を含むエントリを順序を保って返す。
// 空のクエリは全件を返す。
func Search(entries []*model.JournalEntry, query string) []*model.JournalEntry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return entries
	}
	var out []*model.JournalEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title()), query) ||
			strings.Contains(strings.ToLower(e.Content), query) ||
			strings.Contains(strings.ToLower(string(e.Category)), query) {
			out = append(out, e)
		}
	}
	return out
}

// Export はユーザーの全エントリをエクスポート用に整形して返す。
func (s *Service) Export(ctx context.Context, userID string) (*Export, error) {
	entries, err := s.repo.ListByUser(ctx, userID, repository.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for export: %w", err)
	}

	out := make([]ExportEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ExportEntry{
			ID:        e.ID,
			Type:      e.Type,
			Category:  e.Category,
			Title:     e.Title(),
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
		})
	}

	return &Export{
		Filename: fmt.Sprintf("soul-log-journal-%s.json", s.now().UTC().Format("2006-01-02")),
		Entries:  out,
	}, nil
}

// Clear はユーザーの日記を全て削除する。
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear journal: %w", err)
	}
	slog.Info("journal cleared",
		slog.String("user_id", userID),
		slog.Int64("deleted", n),
	)
	return n, nil
}

// Summary はユーザーの全エントリから統計を計算する。
// 暦日はq.Location（未指定ならUTC）で判定する。
func (s *Service) Summary(ctx context.Context, userID string, q SummaryQuery) (*Summary, error) {
	entries, err := s.repo.ListByUser(ctx, userID, repository.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for summary: %w", err)
	}

	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	return Summarize(entries, s.now().In(loc), q.HydrationProgress, q.HydrationGoal), nil
}

// Summarize はエントリ一覧と基準時刻から統計を組み立てる。I/Oは行わない。
func Summarize(entries []*model.JournalEntry, ref time.Time, hydrationProgress, hydrationGoal int) *Summary {
	mind := FilterByType(entries, model.EntryTypeMind)
	body := FilterByType(entries, model.EntryTypeBody)
	soul := FilterByType(entries, model.EntryTypeSoul)
	counts := CategoryCounts(entries)

	goal := hydrationGoal
	if goal == 0 {
		goal = DefaultHydrationGoal
	}
	goal = max(goal, MinHydrationGoal)
	progress := min(max(hydrationProgress, 0), goal)

	return &Summary{
		Totals: Totals{
			All:  len(entries),
			Mind: len(mind),
			Body: len(body),
			Soul: len(soul),
		},
		Mind: MindSummary{
			Counts:         pick(counts, model.EntryTypeMind),
			MostCommonMood: MostCommonCategoryOf(mind, model.EntryTypeMind),
			MindfulToday:   MindfulToday(mind, ref),
			AveragePerWeek: AveragePerWeek(len(mind)),
			TotalEntries:   len(mind),
		},
		Body: BodySummary{
			Counts:            pick(counts, model.EntryTypeBody),
			HydrationProgress: progress,
			HydrationGoal:     goal,
			HydrationPercent:  HydrationPercent(progress, goal),
		},
		Soul: SoulSummary{
			Counts:      pick(counts, model.EntryTypeSoul),
			StreakDays:  StreakDays(soul, ref),
			Affirmation: Affirmation(ref),
		},
		GeneratedAt: ref,
	}
}

func pick(counts map[model.Category]int, t model.EntryType) map[model.Category]int {
	out := make(map[model.Category]int, 3)
	for _, c := range model.CategoriesOf(t) {
		out[c] = counts[c]
	}
	return out
}

func parseTypeFilter(raw string) (repository.EntryFilter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return repository.EntryFilter{}, nil
	}
	t := model.EntryType(raw)
	if !t.Valid() {
		return repository.EntryFilter{}, model.NewValidationError(fmt.Sprintf("unknown entry type: %s", raw))
	}
	return repository.EntryFilter{Type: t}, nil
}

// validationMessage はvalidatorのエラーを利用者向けの1行に変換する。
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
