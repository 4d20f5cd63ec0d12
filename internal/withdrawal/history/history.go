package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/cache"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	MaxPerPage    = 100
	DefaultPeriod = 30
	MaxPeriod     = 365
)

// Source is the remote history, normally the withdrawal gateway
type Source interface {
	GetHistory(ctx context.Context, page, perPage int, status *domain.WithdrawalStatus) (*domain.HistoryPage, error)
	GetStats(ctx context.Context, periodDays int) (*domain.WithdrawalStats, error)
}

// Row is a withdrawal as shown to the user; the full account number never
// leaves this package.
type Row struct {
	ID            string
	Amount        decimal.Decimal
	FinalAmount   decimal.Decimal
	Status        domain.WithdrawalStatus
	Final         bool
	BankName      string
	AccountName   string
	AccountNumber string
	Reference     string
	FailureReason string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	CompletedAt   *time.Time
}

type Page struct {
	Rows       []Row
	Pagination domain.Pagination
}

type ViewModel struct {
	source Source
	cache  *cache.Cache
	logger *logging.Logger
}

func New(source Source, c *cache.Cache, logger *logging.Logger) *ViewModel {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &ViewModel{source: source, cache: c, logger: logger}
}

// ListHistory pages are offset based, a withdrawal created between two page
// loads shifts every later page by one.
func (v *ViewModel) ListHistory(ctx context.Context, page, perPage int, status *domain.WithdrawalStatus) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = domain.DefaultHistoryPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	filter := ""
	if status != nil && *status != "" {
		if !domain.IsStatusValid(string(*status)) {
			return nil, fmt.Errorf("%w: unknown status filter %q", domain.ErrValidation, *status)
		}
		filter = string(*status)
	} else {
		status = nil
	}

	key := cache.HistoryPageKey(page, perPage, filter)
	if page == 1 && perPage == domain.DefaultHistoryPerPage && filter == "" {
		key = cache.KeyHistoryFirstPage
	}

	raw, err := cache.Get(ctx, v.cache, key, func(ctx context.Context) (*domain.HistoryPage, error) {
		return v.source.GetHistory(ctx, page, perPage, status)
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(raw.Records))
	for _, record := range raw.Records {
		rows = append(rows, ToRow(record))
	}
	return &Page{Rows: rows, Pagination: raw.Pagination}, nil
}

// Refresh drops every cached page so the next ListHistory goes to the server
func (v *ViewModel) Refresh() {
	v.cache.InvalidatePrefix(cache.HistoryPrefix)
}

// ComputeStats takes counts from the server and derives the success rate and
// month ordering locally.
func (v *ViewModel) ComputeStats(ctx context.Context, periodDays int) (*domain.WithdrawalStats, error) {
	if periodDays < 1 {
		periodDays = DefaultPeriod
	}
	if periodDays > MaxPeriod {
		periodDays = MaxPeriod
	}

	stats, err := v.source.GetStats(ctx, periodDays)
	if err != nil {
		return nil, err
	}

	out := *stats
	out.PeriodDays = periodDays
	out.SuccessRate = SuccessRate(out.SuccessCount, out.FailedCount)
	out.MonthlyBreakdown = append([]domain.MonthlyStat(nil), stats.MonthlyBreakdown...)
	sortMonths(out.MonthlyBreakdown)

	v.logger.WithFields(logrus.Fields{
		"period_days":  periodDays,
		"success_rate": out.SuccessRate.String(),
	}).Debug("computed withdrawal stats")
	return &out, nil
}

// Summarize aggregates records already in hand, completed amounts only
func Summarize(records []domain.WithdrawalRecord) domain.WithdrawalStats {
	stats := domain.WithdrawalStats{TotalAmount: decimal.Zero}
	months := map[string]*domain.MonthlyStat{}

	for _, record := range records {
		switch record.Status {
		case domain.StatusCompleted:
			stats.SuccessCount++
			stats.TotalAmount = stats.TotalAmount.Add(record.Amount)

			month := record.CreatedAt.Format("2006-01")
			m, ok := months[month]
			if !ok {
				m = &domain.MonthlyStat{Month: month, TotalAmount: decimal.Zero}
				months[month] = m
			}
			m.Count++
			m.TotalAmount = m.TotalAmount.Add(record.Amount)
		case domain.StatusFailed, domain.StatusCancelled:
			stats.FailedCount++
		default:
			stats.PendingCount++
		}
	}

	for _, m := range months {
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, *m)
	}
	sortMonths(stats.MonthlyBreakdown)
	stats.SuccessRate = SuccessRate(stats.SuccessCount, stats.FailedCount)
	return stats
}

// SuccessRate is success / (success + failed) * 100 to two places, zero when
// nothing has settled
func SuccessRate(success, failed int) decimal.Decimal {
	settled := success + failed
	if settled == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(success)).
		Div(decimal.NewFromInt(int64(settled))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func ToRow(record domain.WithdrawalRecord) Row {
	row := Row{
		ID:            record.ID,
		Amount:        record.Amount,
		FinalAmount:   record.FinalAmount,
		Status:        record.Status,
		Final:         record.Status.IsTerminal(),
		BankName:      record.BankName,
		AccountName:   record.AccountName,
		AccountNumber: utils.MaskAccountNumber(record.AccountNumber),
		CreatedAt:     record.CreatedAt,
		ProcessedAt:   record.ProcessedAt,
		CompletedAt:   record.CompletedAt,
	}
	if record.PaystackReference != nil {
		row.Reference = *record.PaystackReference
	}
	if record.FailureReason != nil {
		row.FailureReason = *record.FailureReason
	}
	return row
}

func sortMonths(months []domain.MonthlyStat) {
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month < months[j].Month
	})
}
