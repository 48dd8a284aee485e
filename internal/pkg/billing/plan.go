package billing

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
)

const (
	PlanInstagramOnly = "instagram_only"
	PlanPlatformFull  = "platform_full"
)

var (
	ErrInvalidPlan   = apperror.New(http.StatusBadRequest, "INVALID_PLAN", "Invalid plan")
	ErrConfiguration = apperror.New(http.StatusInternalServerError, "CONFIGURATION_ERROR", "Price ID not configured for plan")
)

// Plan is a catalog entry. Price is the monthly amount in yen.
type Plan struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"name"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
	PriceRef    string   `json:"-"`
}

var plans = []Plan{
	{
		ID:          PlanInstagramOnly,
		DisplayName: "Instagram連携プラン",
		Price:       50000,
		Currency:    "jpy",
		Interval:    "month",
		Features: []string{
			"Instagram投稿の自動同期",
			"企業ページへのギャラリー表示",
			"Instagramからの直接投稿",
			"投稿の予約",
		},
	},
	{
		ID:          PlanPlatformFull,
		DisplayName: "フルプラットフォームプラン",
		Price:       120000,
		Currency:    "jpy",
		Interval:    "month",
		Features: []string{
			"企業ページの掲載",
			"サービス・料金の掲載",
			"一括お問い合わせの受信",
			"お問い合わせ管理",
			"Instagram投稿の自動同期",
			"Instagramからの直接投稿",
			"優先サポート",
		},
	},
}

// Catalog resolves plan ids to plans with their configured provider price ids.
type Catalog struct {
	priceRefs map[string]string
}

// NewCatalog builds a catalog with price ids from configuration. Missing price
// ids are allowed here; they surface as ErrConfiguration when a checkout or
// plan change needs them.
func NewCatalog(cfg config.StripeConfig) *Catalog {
	return &Catalog{priceRefs: map[string]string{
		PlanInstagramOnly: strings.TrimSpace(cfg.PriceInstagramOnly),
		PlanPlatformFull:  strings.TrimSpace(cfg.PricePlatformFull),
	}}
}

// PlanFor returns the plan for id or ErrInvalidPlan.
func (c *Catalog) PlanFor(id string) (Plan, error) {
	for _, p := range plans {
		if p.ID == id {
			p.Features = append([]string(nil), p.Features...)
			p.PriceRef = c.priceRefs[p.ID]
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrInvalidPlan, id)
}

// Plans lists the catalog in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		plan, _ := c.PlanFor(p.ID)
		out = append(out, plan)
	}
	return out
}

// PlanForPriceRef maps a provider price id back to a plan. Unknown price ids
// fall back to platform_full.
func (c *Catalog) PlanForPriceRef(priceRef string) Plan {
	if priceRef != "" {
		for id, ref := range c.priceRefs {
			if ref != "" && ref == priceRef {
				p, _ := c.PlanFor(id)
				return p
			}
		}
	}
	p, _ := c.PlanFor(PlanPlatformFull)
	return p
}

// FormatYen renders an amount like ¥120,000.
func FormatYen(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
