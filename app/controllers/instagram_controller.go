package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/cache"
	"github.com/ManuelReschke/Tochigi/internal/pkg/contentsync"
	"github.com/ManuelReschke/Tochigi/internal/pkg/entitlements"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

const (
	feedCacheTTL     = 5 * time.Minute
	feedDefaultLimit = 50
	feedMaxLimit     = 100
	postsDefault     = 12
	postsMax         = 50
)

// InstagramAuth is the OAuth part of the Instagram client.
type InstagramAuth interface {
	AuthorizationURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
	LongLivedToken(ctx context.Context, shortLived string) (*instagram.Token, error)
	Profile(ctx context.Context, accessToken string) (*instagram.Profile, error)
}

// CompanySyncer runs a manual sync for one company.
type CompanySyncer interface {
	SyncCompany(ctx context.Context, companyID string) (*contentsync.CompanyResult, error)
}

// PostPublisher publishes a photo right away.
type PostPublisher interface {
	Publish(ctx context.Context, companyID, imageURL, caption string) (*contentsync.PublishResult, error)
}

type ConnectInstagramRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

type PublishRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
	Caption  string `json:"caption" validate:"max=2200"`
}

type ScheduleRequest struct {
	ImageURL     string    `json:"imageUrl" validate:"required,url"`
	Caption      string    `json:"caption" validate:"max=2200"`
	ScheduledFor time.Time `json:"scheduledFor" validate:"required"`
}

// InstagramController handles account linking, sync, publishing, the post
// schedule and the public feeds
type InstagramController struct {
	companies repository.CompanyRepository
	posts     repository.ContentPostRepository
	scheduled repository.ScheduledPostRepository
	auth      InstagramAuth
	state     *instagram.StateSigner
	syncer    CompanySyncer
	publisher PostPublisher
	cache     *cache.Store
	validate  *validation.Validator
	log       *logger.Logger
	now       func() time.Time
}

func NewInstagramController(
	companies repository.CompanyRepository,
	posts repository.ContentPostRepository,
	scheduled repository.ScheduledPostRepository,
	auth InstagramAuth,
	state *instagram.StateSigner,
	syncer CompanySyncer,
	publisher PostPublisher,
	store *cache.Store,
	validate *validation.Validator,
	log *logger.Logger,
) *InstagramController {
	return &InstagramController{
		companies: companies,
		posts:     posts,
		scheduled: scheduled,
		auth:      auth,
		state:     state,
		syncer:    syncer,
		publisher: publisher,
		cache:     store,
		validate:  validate,
		log:       log.Named("instagram"),
		now:       time.Now,
	}
}

// HandleAuthURL returns the Instagram consent URL for the session's company
func (ic *InstagramController) HandleAuthURL(c *fiber.Ctx) error {
	companyID := usercontext.GetCompanyID(c)
	if _, err := ic.companies.GetByID(companyID); err != nil {
		return notFound(err, "Company not found")
	}
	authURL, err := ic.auth.AuthorizationURL(ic.state.Sign(companyID))
	if err != nil {
		return apperror.Internal("Failed to initiate Instagram authentication").Wrap(err)
	}
	return c.JSON(fiber.Map{"authUrl": authURL})
}

// HandleAuthCallback finishes the OAuth round trip and stores a long-lived token
func (ic *InstagramController) HandleAuthCallback(c *fiber.Ctx) error {
	var req ConnectInstagramRequest
	if err := bindJSON(c, ic.validate, &req); err != nil {
		return err
	}

	companyID, err := ic.state.Verify(req.State)
	if err != nil {
		return apperror.BadRequest("Invalid state parameter").Wrap(err)
	}
	if companyID != usercontext.GetCompanyID(c) {
		return apperror.Forbidden("State does not belong to this company")
	}

	ctx := c.UserContext()
	short, err := ic.auth.ExchangeCode(ctx, req.Code)
	if err != nil {
		return instagramError(err, "Failed to authenticate with Instagram")
	}
	token, err := ic.auth.LongLivedToken(ctx, short)
	if err != nil {
		return instagramError(err, "Failed to authenticate with Instagram")
	}
	profile, err := ic.auth.Profile(ctx, token.AccessToken)
	if err != nil {
		return instagramError(err, "Failed to load Instagram profile")
	}

	expiresAt := token.ExpiresAt(ic.now())
	if err := ic.companies.SetInstagram(companyID, profile.Username, token.AccessToken, &expiresAt); err != nil {
		return err
	}

	ic.log.Info().Str("companyId", companyID).Str("username", profile.Username).Msg("instagram account connected")
	return c.JSON(fiber.Map{
		"success":   true,
		"username":  profile.Username,
		"expiresIn": token.ExpiresIn,
	})
}

// HandleDisconnect removes the credentials and the cached posts
func (ic *InstagramController) HandleDisconnect(c *fiber.Ctx) error {
	companyID := usercontext.GetCompanyID(c)
	if err := ic.companies.ClearInstagram(companyID); err != nil {
		return err
	}
	ic.log.Info().Str("companyId", companyID).Msg("instagram account disconnected")
	return c.JSON(fiber.Map{"success": true})
}

// HandleSync pulls the latest posts of the session's company
func (ic *InstagramController) HandleSync(c *fiber.Ctx) error {
	companyID := usercontext.GetCompanyID(c)
	if err := ic.requireFeature(companyID, entitlements.FeatureInstagramSync); err != nil {
		return err
	}

	res, err := ic.syncer.SyncCompany(c.UserContext(), companyID)
	if err != nil {
		return instagramError(err, "Failed to sync Instagram posts")
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"syncedCount": res.SyncedCount,
		"totalPosts":  res.TotalPosts,
	})
}

// HandlePublish posts a photo to the company's Instagram account right away
func (ic *InstagramController) HandlePublish(c *fiber.Ctx) error {
	var req PublishRequest
	if err := bindJSON(c, ic.validate, &req); err != nil {
		return err
	}
	companyID := usercontext.GetCompanyID(c)
	if err := ic.requireFeature(companyID, entitlements.FeatureInstagramPublish); err != nil {
		return err
	}

	res, err := ic.publisher.Publish(c.UserContext(), companyID, req.ImageURL, req.Caption)
	if err != nil {
		return instagramError(err, "Failed to publish to Instagram")
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"postId":    res.PostID,
		"permalink": res.Permalink,
	})
}

func (ic *InstagramController) HandleScheduleList(c *fiber.Ctx) error {
	posts, err := ic.scheduled.ListByCompany(usercontext.GetCompanyID(c))
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []models.ScheduledPost{}
	}
	return c.JSON(fiber.Map{"scheduledPosts": posts})
}

// HandleScheduleCreate queues a photo for publishing at a future time
func (ic *InstagramController) HandleScheduleCreate(c *fiber.Ctx) error {
	var req ScheduleRequest
	if err := bindJSON(c, ic.validate, &req); err != nil {
		return err
	}
	if !req.ScheduledFor.After(ic.now()) {
		return validation.FieldError("scheduledFor", "must be in the future")
	}

	companyID := usercontext.GetCompanyID(c)
	company, err := ic.companies.GetByID(companyID)
	if err != nil {
		return notFound(err, "Company not found")
	}
	if err := entitlements.Require(company, entitlements.FeatureInstagramSchedule); err != nil {
		return err
	}
	if !company.HasInstagram() {
		return contentsync.ErrNotConnected
	}

	post := &models.ScheduledPost{
		CompanyID:    companyID,
		ImageURL:     req.ImageURL,
		Caption:      req.Caption,
		ScheduledFor: req.ScheduledFor.UTC(),
		Status:       models.ScheduledPostStatusPending,
	}
	if err := ic.scheduled.Create(post); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"scheduledPost": post,
		"message":       "Post scheduled successfully",
	})
}

// HandleScheduleDelete cancels a pending scheduled post of the company
func (ic *InstagramController) HandleScheduleDelete(c *fiber.Ctx) error {
	post, err := ic.scheduled.GetByID(c.Params("id"))
	if err != nil {
		return notFound(err, "Scheduled post not found")
	}
	if post.CompanyID != usercontext.GetCompanyID(c) {
		return apperror.Forbidden("You do not have access to this scheduled post")
	}
	if post.Status != models.ScheduledPostStatusPending {
		return apperror.Conflict("Only pending posts can be cancelled")
	}

	if err := ic.scheduled.Update(post.ID, map[string]interface{}{"status": models.ScheduledPostStatusCancelled}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Scheduled post cancelled"})
}

// HandleFeed returns the latest posts of all active companies for the home page
func (ic *InstagramController) HandleFeed(c *fiber.Ctx) error {
	limit := clampLimit(c.Query("limit"), feedDefaultLimit, feedMaxLimit)
	key := "instagram:feed:" + strconv.Itoa(limit)
	posts, err := cache.Remember(c.UserContext(), ic.cache, key, feedCacheTTL, func() ([]models.ContentPost, error) {
		return ic.posts.LatestFeed(limit)
	})
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []models.ContentPost{}
	}
	c.Set(fiber.HeaderCacheControl, "public, s-maxage=300, stale-while-revalidate=600")
	return c.JSON(fiber.Map{"posts": posts})
}

// HandlePosts returns the cached posts of one company
func (ic *InstagramController) HandlePosts(c *fiber.Ctx) error {
	companyID := strings.TrimSpace(c.Query("companyId"))
	if companyID == "" {
		return validation.FieldError("companyId", "is required")
	}
	posts, err := ic.posts.ListByCompany(companyID, clampLimit(c.Query("limit"), postsDefault, postsMax))
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []models.ContentPost{}
	}
	return c.JSON(fiber.Map{"posts": posts})
}

func (ic *InstagramController) requireFeature(companyID string, f entitlements.Feature) error {
	company, err := ic.companies.GetByID(companyID)
	if err != nil {
		return notFound(err, "Company not found")
	}
	return entitlements.Require(company, f)
}

// instagramError maps Graph API failures onto the error envelope. API
// errors that already carry a status pass through.
func instagramError(err error, msg string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, instagram.ErrAuthentication):
		return apperror.New(http.StatusBadRequest, "INSTAGRAM_AUTH_ERROR", instagram.ErrAuthentication.Error()).Wrap(err)
	case errors.Is(err, instagram.ErrPermission):
		return apperror.New(http.StatusBadRequest, "INSTAGRAM_PERMISSION_ERROR", instagram.ErrPermission.Error()).Wrap(err)
	case errors.Is(err, instagram.ErrRateLimited):
		return apperror.New(http.StatusTooManyRequests, apperror.CodeTooManyRequests, instagram.ErrRateLimited.Error()).Wrap(err)
	}
	return apperror.New(http.StatusBadGateway, "INSTAGRAM_ERROR", msg).Wrap(err)
}

func clampLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
