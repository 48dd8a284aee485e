package statistics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/billing"
	"github.com/ManuelReschke/Tochigi/internal/pkg/cache"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const (
	CacheKeyAdminStats = "statistics:admin"
	CacheKeyRevenue    = "statistics:revenue"
	CacheExpiration    = 5 * time.Minute

	revenueMonths      = 6
	recentTransactions = 10
)

type CompanyCounter interface {
	Count() (int64, error)
	CountActive() (int64, error)
	CountWithInstagram() (int64, error)
}

type InquiryCounter interface {
	Count() (int64, error)
}

type PostCounter interface {
	Count() (int64, error)
}

type SubscriptionReader interface {
	ListActive() ([]models.Subscription, error)
	CreatedBefore(t time.Time) ([]models.Subscription, error)
	Recent(limit int) ([]models.Subscription, error)
	CountActiveByPlan() (map[string]int64, error)
}

// AdminStats is the platform overview of the admin dashboard.
type AdminStats struct {
	TotalCompanies           int64 `json:"totalCompanies"`
	ActiveCompanies          int64 `json:"activeCompanies"`
	TotalInquiries           int64 `json:"totalInquiries"`
	TotalRevenue             int64 `json:"totalRevenue"`
	MonthlyRevenue           int64 `json:"monthlyRevenue"`
	InstagramConnected       int64 `json:"instagramConnected"`
	InstagramPosts           int64 `json:"instagramPosts"`
	PlatformFullSubscribers  int64 `json:"platformFullSubscribers"`
	InstagramOnlySubscribers int64 `json:"instagramOnlySubscribers"`
}

type PlanRevenue struct {
	Count   int64 `json:"count"`
	Revenue int64 `json:"revenue"`
}

type Transaction struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	Amount      int64     `json:"amount"`
	Plan        string    `json:"plan"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
}

// RevenueReport is the revenue page of the admin dashboard. Amounts are yen.
type RevenueReport struct {
	TotalRevenue              int64                  `json:"totalRevenue"`
	MonthlyRevenue            int64                  `json:"monthlyRevenue"`
	AverageRevenuePerCustomer int64                  `json:"averageRevenuePerCustomer"`
	SubscriptionBreakdown     map[string]PlanRevenue `json:"subscriptionBreakdown"`
	MonthlyData               []models.MonthlyStats  `json:"monthlyData"`
	RecentTransactions        []Transaction          `json:"recentTransactions"`
}

// Service computes the admin reports and caches them briefly.
type Service struct {
	companies     CompanyCounter
	inquiries     InquiryCounter
	posts         PostCounter
	subscriptions SubscriptionReader
	catalog       *billing.Catalog
	cache         *cache.Store
	log           *logger.Logger
	now           func() time.Time
}

// NewService builds the report service. store may be nil, then nothing is cached.
func NewService(companies CompanyCounter, inquiries InquiryCounter, posts PostCounter, subscriptions SubscriptionReader, catalog *billing.Catalog, store *cache.Store, log *logger.Logger) *Service {
	return &Service{
		companies:     companies,
		inquiries:     inquiries,
		posts:         posts,
		subscriptions: subscriptions,
		catalog:       catalog,
		cache:         store,
		log:           log.Named("statistics"),
		now:           time.Now,
	}
}

// AdminStats returns the cached overview or computes it.
func (s *Service) AdminStats(ctx context.Context) (*AdminStats, error) {
	return cache.Remember(ctx, s.cache, CacheKeyAdminStats, CacheExpiration, s.computeAdminStats)
}

// Revenue returns the cached revenue report or computes it.
func (s *Service) Revenue(ctx context.Context) (*RevenueReport, error) {
	return cache.Remember(ctx, s.cache, CacheKeyRevenue, CacheExpiration, s.computeRevenue)
}

// Invalidate drops the cached reports, e.g. after a company was removed.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKeyAdminStats, CacheKeyRevenue); err != nil {
		s.log.Debug().Err(err).Msg("failed to invalidate statistics cache")
	}
}

func (s *Service) computeAdminStats() (*AdminStats, error) {
	var st AdminStats
	var err error

	if st.TotalCompanies, err = s.companies.Count(); err != nil {
		return nil, err
	}
	if st.ActiveCompanies, err = s.companies.CountActive(); err != nil {
		return nil, err
	}
	if st.InstagramConnected, err = s.companies.CountWithInstagram(); err != nil {
		return nil, err
	}
	if st.TotalInquiries, err = s.inquiries.Count(); err != nil {
		return nil, err
	}
	if st.InstagramPosts, err = s.posts.Count(); err != nil {
		return nil, err
	}

	byPlan, err := s.subscriptions.CountActiveByPlan()
	if err != nil {
		return nil, err
	}
	st.PlatformFullSubscribers = byPlan[billing.PlanPlatformFull]
	st.InstagramOnlySubscribers = byPlan[billing.PlanInstagramOnly]

	active, err := s.subscriptions.ListActive()
	if err != nil {
		return nil, err
	}
	st.TotalRevenue = sumPrices(active)
	// every plan bills monthly, so MRR equals the active total
	st.MonthlyRevenue = st.TotalRevenue

	return &st, nil
}

func (s *Service) computeRevenue() (*RevenueReport, error) {
	active, err := s.subscriptions.ListActive()
	if err != nil {
		return nil, err
	}

	total := sumPrices(active)
	report := &RevenueReport{
		TotalRevenue:   total,
		MonthlyRevenue: total,
		SubscriptionBreakdown: map[string]PlanRevenue{
			"platformFull":  {},
			"instagramOnly": {},
		},
	}
	if n := len(active); n > 0 {
		report.AverageRevenuePerCustomer = decimal.NewFromInt(total).
			Div(decimal.NewFromInt(int64(n))).
			Round(0).
			IntPart()
	}
	for _, sub := range active {
		key := breakdownKey(sub.Plan)
		if key == "" {
			continue
		}
		b := report.SubscriptionBreakdown[key]
		b.Count++
		b.Revenue += sub.Price
		report.SubscriptionBreakdown[key] = b
	}

	monthStart := firstOfMonth(s.now())
	windowEnd := monthStart.AddDate(0, 1, 0)
	history, err := s.subscriptions.CreatedBefore(windowEnd)
	if err != nil {
		return nil, err
	}
	report.MonthlyData = MonthlySeries(history, monthStart, revenueMonths)

	recent, err := s.subscriptions.Recent(recentTransactions)
	if err != nil {
		return nil, err
	}
	report.RecentTransactions = make([]Transaction, 0, len(recent))
	for _, sub := range recent {
		t := Transaction{
			ID:     sub.ID,
			Amount: sub.Price,
			Plan:   s.planName(sub.Plan),
			Date:   sub.CurrentPeriodStart,
			Status: sub.Status,
		}
		if sub.Company != nil {
			t.CompanyName = sub.Company.Name
		}
		report.RecentTransactions = append(report.RecentTransactions, t)
	}

	return report, nil
}

// MonthlySeries buckets subscriptions into the months ending with current.
// Revenue of a month is the sum of subscriptions live at its end; new and
// churned count creations and cancellations inside the month.
func MonthlySeries(subs []models.Subscription, current time.Time, months int) []models.MonthlyStats {
	current = firstOfMonth(current)
	out := make([]models.MonthlyStats, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)
		m := models.MonthlyStats{Month: start.Format("2006-01")}
		for _, sub := range subs {
			created := sub.CreatedAt.UTC()
			if !created.Before(start) && created.Before(end) {
				m.NewSubscribers++
			}
			if sub.CancelledAt != nil {
				c := sub.CancelledAt.UTC()
				if !c.Before(start) && c.Before(end) {
					m.ChurnedSubscribers++
				}
			}
			if created.Before(end) && (sub.CancelledAt == nil || !sub.CancelledAt.Before(end)) {
				m.Revenue += sub.Price
			}
		}
		out = append(out, m)
	}
	return out
}

func (s *Service) planName(planID string) string {
	if s.catalog == nil {
		return planID
	}
	p, err := s.catalog.PlanFor(planID)
	if err != nil {
		return planID
	}
	return p.DisplayName
}

func breakdownKey(plan string) string {
	switch plan {
	case billing.PlanPlatformFull:
		return "platformFull"
	case billing.PlanInstagramOnly:
		return "instagramOnly"
	}
	return ""
}

func sumPrices(subs []models.Subscription) int64 {
	var total int64
	for _, s := range subs {
		total += s.Price
	}
	return total
}

func firstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
