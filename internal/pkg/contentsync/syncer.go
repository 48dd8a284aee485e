package contentsync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
)

// PostsPerSync is the number of latest posts fetched per company and run.
const PostsPerSync = 50

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var ErrNotConnected = apperror.New(http.StatusBadRequest, "INSTAGRAM_NOT_CONNECTED", "Instagram account not connected")

// Companies is the company lookup the sync needs.
type Companies interface {
	GetByID(id string) (*models.Company, error)
	ListWithInstagram() ([]models.Company, error)
}

// Posts stores cached posts.
type Posts interface {
	Upsert(post *models.ContentPost) error
	SetMirroredURL(postID, url string) error
}

// MediaSource lists the latest posts of an Instagram account.
type MediaSource interface {
	UserMedia(ctx context.Context, accessToken string, limit int) ([]instagram.Media, error)
}

// Mirrorer copies post media to object storage.
type Mirrorer interface {
	Copy(ctx context.Context, companyID, postID, sourceURL string) (string, error)
}

// Detail is the outcome for one company.
type Detail struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
	Status      string `json:"status"`
	SyncedCount *int   `json:"syncedCount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result summarizes a run over all connected companies.
type Result struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Details []Detail `json:"details"`
}

// CompanyResult is the outcome of a manual single-company sync.
type CompanyResult struct {
	SyncedCount int `json:"syncedCount"`
	TotalPosts  int `json:"totalPosts"`
}

// Syncer pulls Instagram posts into the local post cache.
type Syncer struct {
	companies Companies
	posts     Posts
	source    MediaSource
	mailer    mail.Mailer
	mirror    Mirrorer
	log       *logger.Logger
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewSyncer(companies Companies, posts Posts, source MediaSource, mailer mail.Mailer, log *logger.Logger, delay time.Duration) *Syncer {
	return &Syncer{
		companies: companies,
		posts:     posts,
		source:    source,
		mailer:    mailer,
		log:       log.Named("contentsync"),
		delay:     delay,
		sleep:     sleepContext,
	}
}

// WithMirror enables copying media to object storage.
func (s *Syncer) WithMirror(m Mirrorer) *Syncer {
	s.mirror = m
	return s
}

// RunAll syncs every active company with a stored token, one after another
// with a fixed pause in between. A failing company does not stop the run.
func (s *Syncer) RunAll(ctx context.Context) (*Result, error) {
	companies, err := s.companies.ListWithInstagram()
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(companies), Details: make([]Detail, 0, len(companies))}
	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		count, syncErr := s.syncOne(ctx, &company)
		if syncErr != nil {
			result.Failed++
			result.Details = append(result.Details, Detail{
				CompanyID:   company.ID,
				CompanyName: company.Name,
				Status:      StatusFailed,
				Error:       syncErr.Error(),
			})
			s.log.Error().Err(syncErr).Str("companyId", company.ID).Msg("instagram sync failed")
			msg, renderErr := mail.InstagramSyncError(company.Email, company.Name, syncErr.Error())
			mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
		} else {
			synced := count
			result.Success++
			result.Details = append(result.Details, Detail{
				CompanyID:   company.ID,
				CompanyName: company.Name,
				Status:      StatusSuccess,
				SyncedCount: &synced,
			})
			if count > 0 {
				msg, renderErr := mail.InstagramSyncSuccess(company.Email, company.Name, count)
				mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
			}
		}

		if i < len(companies)-1 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return result, err
			}
		}
	}

	s.log.Info().Int("total", result.Total).Int("success", result.Success).Int("failed", result.Failed).Msg("instagram sync completed")
	return result, nil
}

// SyncCompany syncs a single company on request of its owner.
func (s *Syncer) SyncCompany(ctx context.Context, companyID string) (*CompanyResult, error) {
	company, err := s.companies.GetByID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Company not found")
		}
		return nil, err
	}
	if !company.HasInstagram() {
		return nil, ErrNotConnected
	}

	media, err := s.source.UserMedia(ctx, *company.InstagramToken, PostsPerSync)
	if err == nil {
		var count int
		count, err = s.store(ctx, company, media)
		if err == nil {
			msg, renderErr := mail.InstagramSyncSuccess(company.Email, company.Name, count)
			mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
			return &CompanyResult{SyncedCount: count, TotalPosts: len(media)}, nil
		}
	}

	s.log.Error().Err(err).Str("companyId", company.ID).Msg("instagram sync failed")
	msg, renderErr := mail.InstagramSyncError(company.Email, company.Name, err.Error())
	mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
	return nil, err
}

func (s *Syncer) syncOne(ctx context.Context, company *models.Company) (int, error) {
	if !company.HasInstagram() {
		return 0, ErrNotConnected
	}
	media, err := s.source.UserMedia(ctx, *company.InstagramToken, PostsPerSync)
	if err != nil {
		return 0, err
	}
	return s.store(ctx, company, media)
}

// store upserts media by remote post id and returns how many were written.
func (s *Syncer) store(ctx context.Context, company *models.Company, media []instagram.Media) (int, error) {
	count := 0
	for _, m := range media {
		post := PostFromMedia(company.ID, m)
		if err := s.posts.Upsert(post); err != nil {
			return count, err
		}
		count++
		s.mirrorPost(ctx, post)
	}
	return count, nil
}

// mirrorPost copies the media when a mirror is configured. Failures only log.
func (s *Syncer) mirrorPost(ctx context.Context, post *models.ContentPost) {
	if s.mirror == nil || post.MediaURL == "" {
		return
	}
	url, err := s.mirror.Copy(ctx, post.CompanyID, post.PostID, post.MediaURL)
	if err != nil {
		s.log.Warn().Err(err).Str("postId", post.PostID).Msg("media mirror failed")
		return
	}
	if err := s.posts.SetMirroredURL(post.PostID, url); err != nil {
		s.log.Warn().Err(err).Str("postId", post.PostID).Msg("failed to store mirrored url")
	}
}

// PostFromMedia maps a Graph API media object onto the local cache row.
func PostFromMedia(companyID string, m instagram.Media) *models.ContentPost {
	post := &models.ContentPost{
		CompanyID:     companyID,
		PostID:        m.ID,
		MediaURL:      m.MediaURL,
		MediaType:     m.MediaType,
		Permalink:     m.Permalink,
		Timestamp:     m.PublishedAt(),
		LikesCount:    m.LikeCount,
		CommentsCount: m.CommentsCount,
	}
	if m.Caption != "" {
		caption := m.Caption
		post.Caption = &caption
	}
	return post
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
