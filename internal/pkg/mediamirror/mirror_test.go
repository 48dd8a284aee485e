package mediamirror

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

type fakeStore struct {
	existing map[string]bool
	puts     map[string][]byte
	types    map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: map[string]bool{}, puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.existing[aws.ToString(in.Key)] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = body
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.existing, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testConfig() config.MediaConfig {
	return config.MediaConfig{Enabled: true, BucketName: "tochigi-media", Region: "ap-northeast-1", PublicBaseURL: "https://media.tochigi.example.jp/"}
}

func TestCopyUploadsMedia(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer cdn.Close()

	store := newFakeStore()
	m := NewWithStore(store, testConfig(), logger.Nop())

	url, err := m.Copy(context.Background(), "c1", "17900", cdn.URL+"/v/t51/abc.jpg?stp=dst-jpg&_nc_ht=cdn")
	require.NoError(t, err)

	assert.Equal(t, "https://media.tochigi.example.jp/instagram/c1/17900.jpg", url)
	assert.Equal(t, []byte("jpeg-bytes"), store.puts["instagram/c1/17900.jpg"])
	assert.Equal(t, "image/jpeg", store.types["instagram/c1/17900.jpg"])
}

func TestCopySkipsExistingObject(t *testing.T) {
	calls := 0
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer cdn.Close()

	store := newFakeStore()
	store.existing["instagram/c1/17900.mp4"] = true
	m := NewWithStore(store, testConfig(), logger.Nop())

	url, err := m.Copy(context.Background(), "c1", "17900", cdn.URL+"/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://media.tochigi.example.jp/instagram/c1/17900.mp4", url)
	assert.Zero(t, calls)
	assert.Empty(t, store.puts)
}

func TestCopyFailsOnDownloadError(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer cdn.Close()

	store := newFakeStore()
	m := NewWithStore(store, testConfig(), logger.Nop())

	_, err := m.Copy(context.Background(), "c1", "1", cdn.URL+"/expired.jpg")
	assert.ErrorContains(t, err, "unexpected status 403")
	assert.Empty(t, store.puts)
}

func TestDefaultPublicURL(t *testing.T) {
	cfg := testConfig()
	cfg.PublicBaseURL = ""
	m := NewWithStore(newFakeStore(), cfg, logger.Nop())
	assert.Equal(t, "https://tochigi-media.s3.ap-northeast-1.amazonaws.com/instagram/c1/p.jpg", m.PublicURL(ObjectKey("c1", "p", ".jpg")))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("https://cdn/x/y.PNG?a=b"))
	assert.Equal(t, ".jpg", extension("https://cdn/x/y"))
	assert.Equal(t, ".mp4", extension("https://cdn/x/y.mp4#t"))
}

func TestNewDisabledReturnsNil(t *testing.T) {
	m, err := New(context.Background(), config.MediaConfig{}, logger.Nop())
	assert.NoError(t, err)
	assert.Nil(t, m)
}
