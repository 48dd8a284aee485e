package contentsync

import (
	"context"
	"time"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

// Long-lived tokens last 60 days and can be refreshed once they are a day old.
const refreshWindow = 7 * 24 * time.Hour

// TokenSource refreshes long-lived Instagram tokens.
type TokenSource interface {
	RefreshToken(ctx context.Context, accessToken string) (*instagram.Token, error)
}

// TokenStore persists a refreshed token.
type TokenStore interface {
	ListWithInstagram() ([]models.Company, error)
	UpdateInstagramToken(id, token string, expiresAt *time.Time) error
}

// TokenRefresher renews tokens close to expiry so the daily sync keeps
// working without the business reconnecting.
type TokenRefresher struct {
	companies TokenStore
	source    TokenSource
	log       *logger.Logger
	now       func() time.Time
}

func NewTokenRefresher(companies TokenStore, source TokenSource, log *logger.Logger) *TokenRefresher {
	return &TokenRefresher{
		companies: companies,
		source:    source,
		log:       log.Named("token-refresh"),
		now:       time.Now,
	}
}

// RefreshExpiring refreshes every token that expires within the refresh
// window and returns how many were renewed. A token without a known expiry
// is left alone. Failures are logged per company and do not stop the run.
func (r *TokenRefresher) RefreshExpiring(ctx context.Context) (int, error) {
	companies, err := r.companies.ListWithInstagram()
	if err != nil {
		return 0, err
	}

	now := r.now()
	refreshed := 0
	for _, company := range companies {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		exp := company.InstagramTokenExpiresAt
		if exp == nil || exp.Sub(now) > refreshWindow {
			continue
		}
		if exp.Before(now) {
			r.log.Warn().Str("company_id", company.ID).Msg("instagram token already expired, reconnect required")
			continue
		}

		tok, err := r.source.RefreshToken(ctx, *company.InstagramToken)
		if err != nil {
			r.log.Error().Err(err).Str("company_id", company.ID).Msg("failed to refresh instagram token")
			continue
		}
		expiresAt := tok.ExpiresAt(now)
		if err := r.companies.UpdateInstagramToken(company.ID, tok.AccessToken, &expiresAt); err != nil {
			r.log.Error().Err(err).Str("company_id", company.ID).Msg("failed to store refreshed instagram token")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
