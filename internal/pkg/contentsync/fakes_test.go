package contentsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
)

type fakeCompanies struct {
	list    []models.Company
	listErr error
}

func (f *fakeCompanies) GetByID(id string) (*models.Company, error) {
	for i := range f.list {
		if f.list[i].ID == id {
			c := f.list[i]
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCompanies) ListWithInstagram() ([]models.Company, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Company
	for _, c := range f.list {
		if c.IsActive && c.HasInstagram() {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakePosts keys rows by remote post id, like the unique index does.
type fakePosts struct {
	mu       sync.Mutex
	rows     map[string]models.ContentPost
	mirrored map[string]string
	err      error
}

func newFakePosts() *fakePosts {
	return &fakePosts{rows: map[string]models.ContentPost{}, mirrored: map[string]string{}}
}

func (f *fakePosts) Upsert(post *models.ContentPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[post.PostID] = *post
	return nil
}

func (f *fakePosts) SetMirroredURL(postID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mirrored[postID] = url
	return nil
}

func (f *fakePosts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeGraph serves media per access token and records publish calls.
type fakeGraph struct {
	media      map[string][]instagram.Media
	errs       map[string]error
	limits     []int
	publishErr error
	published  []string
}

func (f *fakeGraph) UserMedia(ctx context.Context, token string, limit int) ([]instagram.Media, error) {
	f.limits = append(f.limits, limit)
	if err := f.errs[token]; err != nil {
		return nil, err
	}
	return f.media[token], nil
}

func (f *fakeGraph) CreatePhotoContainer(ctx context.Context, token, imageURL, caption string) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	return "container-" + imageURL, nil
}

func (f *fakeGraph) PublishMedia(ctx context.Context, token, creationID string) (string, error) {
	f.published = append(f.published, creationID)
	return "media-" + creationID, nil
}

func (f *fakeGraph) MediaDetails(ctx context.Context, mediaID, token string) (*instagram.Media, error) {
	return &instagram.Media{
		ID:        mediaID,
		MediaURL:  "https://cdn.example/" + mediaID + ".jpg",
		MediaType: models.MediaTypeImage,
		Permalink: "https://instagram.com/p/" + mediaID,
		Timestamp: "2026-04-01T09:00:00+0000",
	}, nil
}

type fakeMirror struct {
	err error
}

func (f *fakeMirror) Copy(ctx context.Context, companyID, postID, sourceURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://media.example/" + companyID + "/" + postID + ".jpg", nil
}

type fakeScheduled struct {
	due         []models.ScheduledPost
	updates     map[string]map[string]interface{}
	failUpdates int
	updateCalls int
}

func (f *fakeScheduled) ListDue(now time.Time, limit int) ([]models.ScheduledPost, error) {
	var out []models.ScheduledPost
	for _, p := range f.due {
		if p.Status == models.ScheduledPostStatusPending && !p.ScheduledFor.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeScheduled) Update(id string, updates map[string]interface{}) error {
	f.updateCalls++
	if f.failUpdates > 0 {
		f.failUpdates--
		return errors.New("lock wait timeout exceeded")
	}
	if f.updates == nil {
		f.updates = map[string]map[string]interface{}{}
	}
	f.updates[id] = updates
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingMailer) subjects() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.sent))
	for _, m := range r.sent {
		out[m.To] = m.Subject
	}
	return out
}

var errTokenExpired = errors.New("get user media: Error validating access token (status 400)")

func connected(id, name, email, token string) models.Company {
	return models.Company{ID: id, Name: name, Email: email, IsActive: true, InstagramToken: &token}
}

func media(ids ...string) []instagram.Media {
	out := make([]instagram.Media, 0, len(ids))
	for _, id := range ids {
		out = append(out, instagram.Media{
			ID:            id,
			Caption:       "投稿 " + id,
			MediaURL:      "https://cdn.example/" + id + ".jpg",
			MediaType:     models.MediaTypeImage,
			Permalink:     "https://instagram.com/p/" + id,
			Timestamp:     "2026-03-30T12:00:00+0000",
			LikeCount:     3,
			CommentsCount: 1,
		})
	}
	return out
}
