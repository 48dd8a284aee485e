package entitlements

import (
	"net/http"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/billing"
)

type Feature string

const (
	FeatureInstagramSync     Feature = "instagram_sync"
	FeatureInstagramPublish  Feature = "instagram_publish"
	FeatureInstagramSchedule Feature = "instagram_schedule"
	FeatureListing           Feature = "listing"
	FeatureInquiries         Feature = "inquiries"
)

// ErrPlanRequired is returned when the company plan does not include a feature.
var ErrPlanRequired = apperror.New(http.StatusForbidden, "PLAN_REQUIRED", "Your subscription plan does not include this feature")

var planFeatures = map[string][]Feature{
	billing.PlanInstagramOnly: {
		FeatureInstagramSync,
		FeatureInstagramPublish,
		FeatureInstagramSchedule,
	},
	billing.PlanPlatformFull: {
		FeatureListing,
		FeatureInquiries,
		FeatureInstagramSync,
		FeatureInstagramPublish,
		FeatureInstagramSchedule,
	},
}

// Features lists what a plan includes. Unknown and empty plans include nothing.
func Features(plan string) []Feature {
	return append([]Feature(nil), planFeatures[plan]...)
}

// Allowed reports whether plan includes f.
func Allowed(plan string, f Feature) bool {
	for _, have := range planFeatures[plan] {
		if have == f {
			return true
		}
	}
	return false
}

// CompanyPlan returns the plan mirrored onto the company, or "".
func CompanyPlan(c *models.Company) string {
	if c == nil || c.SubscriptionPlan == nil {
		return ""
	}
	return *c.SubscriptionPlan
}

// Require returns ErrPlanRequired unless the company plan includes f.
func Require(c *models.Company, f Feature) error {
	if Allowed(CompanyPlan(c), f) {
		return nil
	}
	return ErrPlanRequired.WithDetails(map[string]string{"feature": string(f)})
}
