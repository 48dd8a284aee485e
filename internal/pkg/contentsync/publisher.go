package contentsync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

// duePerRun bounds how many scheduled posts one publisher tick handles.
const duePerRun = 20

// A post that is live on Instagram but still pending locally would be
// published again on the next tick.
const markPublishedAttempts = 3

// PublishAPI is the publishing part of the Instagram client.
type PublishAPI interface {
	CreatePhotoContainer(ctx context.Context, accessToken, imageURL, caption string) (string, error)
	PublishMedia(ctx context.Context, accessToken, creationID string) (string, error)
	MediaDetails(ctx context.Context, mediaID, accessToken string) (*instagram.Media, error)
}

// ScheduledPosts is the queue of posts waiting to be published.
type ScheduledPosts interface {
	ListDue(now time.Time, limit int) ([]models.ScheduledPost, error)
	Update(id string, updates map[string]interface{}) error
}

// PublishResult is what a direct publish returns to the caller.
type PublishResult struct {
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
}

// Publisher posts photos to Instagram, directly or from the schedule.
type Publisher struct {
	companies Companies
	posts     Posts
	scheduled ScheduledPosts
	api       PublishAPI
	log       *logger.Logger
	now       func() time.Time
}

func NewPublisher(companies Companies, posts Posts, scheduled ScheduledPosts, api PublishAPI, log *logger.Logger) *Publisher {
	return &Publisher{
		companies: companies,
		posts:     posts,
		scheduled: scheduled,
		api:       api,
		log:       log.Named("publisher"),
		now:       time.Now,
	}
}

// ConnectedCompany loads a company and checks that it has an Instagram token.
func (p *Publisher) ConnectedCompany(companyID string) (*models.Company, error) {
	company, err := p.companies.GetByID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Company not found")
		}
		return nil, err
	}
	if !company.HasInstagram() {
		return nil, ErrNotConnected
	}
	return company, nil
}

// Publish creates a container, publishes it, reads the resulting post back
// and stores it in the post cache.
func (p *Publisher) Publish(ctx context.Context, companyID, imageURL, caption string) (*PublishResult, error) {
	company, err := p.ConnectedCompany(companyID)
	if err != nil {
		return nil, err
	}
	return p.publish(ctx, company, imageURL, caption)
}

func (p *Publisher) publish(ctx context.Context, company *models.Company, imageURL, caption string) (*PublishResult, error) {
	token := *company.InstagramToken

	containerID, err := p.api.CreatePhotoContainer(ctx, token, imageURL, caption)
	if err != nil {
		return nil, err
	}
	mediaID, err := p.api.PublishMedia(ctx, token, containerID)
	if err != nil {
		return nil, err
	}
	details, err := p.api.MediaDetails(ctx, mediaID, token)
	if err != nil {
		return nil, err
	}
	if err := p.posts.Upsert(PostFromMedia(company.ID, *details)); err != nil {
		return nil, err
	}

	p.log.Info().Str("companyId", company.ID).Str("postId", mediaID).Msg("instagram post published")
	return &PublishResult{PostID: mediaID, Permalink: details.Permalink}, nil
}

// PublishDue publishes every scheduled post whose time has come. A failed
// attempt is recorded and retried on the next tick until the attempt limit
// is reached. It returns the number of posts published.
func (p *Publisher) PublishDue(ctx context.Context) (int, error) {
	due, err := p.scheduled.ListDue(p.now(), duePerRun)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, post := range due {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if p.publishScheduled(ctx, post) {
			published++
		}
	}
	return published, nil
}

func (p *Publisher) publishScheduled(ctx context.Context, post models.ScheduledPost) bool {
	company, err := p.ConnectedCompany(post.CompanyID)
	var result *PublishResult
	if err == nil {
		result, err = p.publish(ctx, company, post.ImageURL, post.Caption)
	}

	if err == nil {
		p.markPublished(post, result)
		return true
	}

	attempts := post.Attempts + 1
	updates := map[string]interface{}{
		"attempts":   attempts,
		"last_error": err.Error(),
	}
	if attempts >= models.ScheduledPostMaxAttempts || errors.Is(err, ErrNotConnected) {
		updates["status"] = models.ScheduledPostStatusFailed
	}
	p.log.Warn().Err(err).Str("scheduledPostId", post.ID).Int("attempts", attempts).Msg("scheduled post not published")
	if uerr := p.scheduled.Update(post.ID, updates); uerr != nil {
		p.log.Error().Err(uerr).Str("scheduledPostId", post.ID).Msg("failed to record publish attempt")
	}
	return false
}

func (p *Publisher) markPublished(post models.ScheduledPost, result *PublishResult) {
	updates := map[string]interface{}{
		"status":         models.ScheduledPostStatusPublished,
		"remote_post_id": result.PostID,
		"permalink":      result.Permalink,
		"published_at":   p.now(),
		"attempts":       post.Attempts + 1,
		"last_error":     nil,
	}

	var err error
	for i := 0; i < markPublishedAttempts; i++ {
		if err = p.scheduled.Update(post.ID, updates); err == nil {
			return
		}
	}
	p.log.Error().Err(err).
		Str("scheduledPostId", post.ID).
		Str("remotePostId", result.PostID).
		Msg("scheduled post is live but still pending, it will be published again unless marked by hand")
}
