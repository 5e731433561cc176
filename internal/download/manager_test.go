package download

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/multitok/internal/cache"
	"github.com/handiism/multitok/internal/errlog"
	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/identity"
	"github.com/handiism/multitok/internal/metadata"
	"github.com/handiism/multitok/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	videoLink   model.Link = "https://www.tiktok.com/@alice/video/7301"
	photoLink   model.Link = "https://www.tiktok.com/@bob/photo/7302"
	brokenLink  model.Link = "https://www.tiktok.com/@bob/photo/7303"
	privateLink model.Link = "https://www.tiktok.com/@carol/video/7304"
)

// fakeProvider answers from a table keyed by content id.
type fakeProvider struct {
	items map[string][]string
	calls atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Fetch(_ context.Context, _ model.Link, id model.ContentIdentity, _ bool) (*model.ProviderResult, error) {
	p.calls.Add(1)
	result := &model.ProviderResult{Header: http.Header{"Referer": {"https://mirror.test/"}}}
	for _, u := range p.items[id.ContentID] {
		result.Items = append(result.Items, model.MediaItem{URL: u, Kind: id.ContentType})
	}
	return result, nil
}

type fakeMetadata struct {
	err error
}

func (f *fakeMetadata) Fetch(context.Context, model.Link) (*metadata.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &metadata.Record{ID: "7301", Description: "hello #go"}, nil
}

type fixture struct {
	fs       afero.Fs
	cache    *cache.Memory
	provider *fakeProvider
	hits     *atomic.Int32
	events   []ProgressEvent
	mu       sync.Mutex
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		fs:    afero.NewMemMapFs(),
		cache: cache.NewMemory(),
		hits:  &atomic.Int32{},
	}

	photo := pngBytes(t)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, "https://mirror.test/", r.Header.Get("Referer"))
		switch r.URL.Path {
		case "/media/video.mp4":
			w.Write([]byte("video-bytes"))
		case "/media/photo.png":
			w.Write(photo)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)

	base := f.server.URL
	f.provider = &fakeProvider{items: map[string][]string{
		"7301": {base + "/media/video.mp4"},
		"7302": {base + "/media/photo.png", base + "/media/photo.png"},
		"7303": {base + "/media/photo.png", base + "/media/gone.png"},
	}}

	return f
}

func (f *fixture) manager(opts Options, md MetadataFetcher) *Manager {
	client := mhttp.NewClient(mhttp.Options{MaxAttempts: 2, BackoffFactor: 0})
	if opts.Workers == 0 {
		opts.Workers = 3
	}
	if opts.Layout.Root == "" {
		opts.Layout.Root = "/out"
	}

	deps := Dependencies{
		Provider:  f.provider,
		Extractor: identity.NewExtractor(client, mhttp.RandomUserAgent),
		Client:    client,
		Saver:     NewSaver(f.fs, true),
		Cache:     f.cache,
		ErrorLog:  errlog.New(f.fs, "/errors.txt"),
		Metadata:  md,
		Logger:    slog.New(slog.DiscardHandler),
	}
	return NewManager(opts, deps, func(e ProgressEvent) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})
}

func (f *fixture) errorLines(t *testing.T) []string {
	data, err := afero.ReadFile(f.fs, "/errors.txt")
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4))))
	return buf.Bytes()
}

func TestManager_EndToEnd(t *testing.T) {
	f := newFixture(t)
	m := f.manager(Options{}, nil)

	summary, err := m.Run(context.Background(), []model.Link{videoLink, "https://example.com/not-a-post"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	data, err := afero.ReadFile(f.fs, "/out/alice/7301.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	lines := f.errorLines(t)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "https://example.com/not-a-post - "))

	ok, _ := f.cache.Contains(context.Background(), videoLink)
	assert.True(t, ok)
	assert.Equal(t, 1, f.cache.Len())

	received, total, filesDone, filesTotal := m.GetProgress()
	assert.Equal(t, int64(len("video-bytes")), received)
	assert.Equal(t, int64(len("video-bytes")), total)
	assert.Equal(t, int32(1), filesDone)
	assert.Equal(t, int32(1), filesTotal)
}

func TestManager_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	links := []model.Link{videoLink, photoLink}

	_, err := f.manager(Options{}, nil).Run(context.Background(), links)
	require.NoError(t, err)
	hits, calls := f.hits.Load(), f.provider.calls.Load()

	before := snapshot(t, f.fs)

	summary, err := f.manager(Options{}, nil).Run(context.Background(), links)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, hits, f.hits.Load())
	assert.Equal(t, calls, f.provider.calls.Load())
	assert.Equal(t, before, snapshot(t, f.fs))
}

func TestManager_PhotoSet(t *testing.T) {
	f := newFixture(t)
	summary, err := f.manager(Options{Layout: model.Layout{Root: "/out", Flat: true}}, nil).Run(context.Background(), []model.Link{photoLink})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	for _, path := range []string{"/out/bob_7302_0.jpeg", "/out/bob_7302_1.jpeg"} {
		exists, _ := afero.Exists(f.fs, path)
		assert.True(t, exists, path)
	}
}

func TestManager_PartialPhotoSetIsNotCached(t *testing.T) {
	f := newFixture(t)
	summary, err := f.manager(Options{}, nil).Run(context.Background(), []model.Link{brokenLink})
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 1)
	outcome := summary.Outcomes[0]
	assert.Equal(t, model.OutcomeFailed, outcome.State)
	assert.Equal(t, model.KindTransport, model.Classify(outcome.Err))

	ok, _ := f.cache.Contains(context.Background(), brokenLink)
	assert.False(t, ok)

	exists, _ := afero.Exists(f.fs, "/out/bob/7303_0.jpeg")
	assert.True(t, exists)
	assert.Len(t, f.errorLines(t), 1)
}

func TestManager_NoCandidates(t *testing.T) {
	f := newFixture(t)
	summary, err := f.manager(Options{}, nil).Run(context.Background(), []model.Link{privateLink})
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 1)
	assert.ErrorIs(t, summary.Outcomes[0].Err, model.ErrContentUnavailable)
	assert.Empty(t, snapshot(t, f.fs))
	assert.Zero(t, f.hits.Load())
}

func TestManager_SkipExistingFile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/out/alice/7301.mp4", []byte("kept"), 0644))

	summary, err := f.manager(Options{}, nil).Run(context.Background(), []model.Link{videoLink})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Zero(t, f.hits.Load())

	data, _ := afero.ReadFile(f.fs, "/out/alice/7301.mp4")
	assert.Equal(t, "kept", string(data))

	var skipped bool
	for _, e := range f.events {
		if e.Message == "Skipping: 7301.mp4 (already exists)" {
			skipped = true
		}
	}
	assert.True(t, skipped)
}

func TestManager_DuplicatesDispatchedOnce(t *testing.T) {
	f := newFixture(t)
	summary, err := f.manager(Options{}, nil).Run(context.Background(), []model.Link{videoLink, videoLink, videoLink})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, int32(1), f.provider.calls.Load())
}

func TestManager_Metadata(t *testing.T) {
	t.Run("written next to the video", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager(Options{SaveMetadata: true}, &fakeMetadata{}).Run(context.Background(), []model.Link{videoLink})
		require.NoError(t, err)

		data, err := afero.ReadFile(f.fs, "/out/alice/metadata/7301.json")
		require.NoError(t, err)
		assert.Contains(t, string(data), `"description": "hello #go"`)
	})

	t.Run("failure is only a warning", func(t *testing.T) {
		f := newFixture(t)
		summary, err := f.manager(Options{SaveMetadata: true}, &fakeMetadata{err: metadata.ErrNoItem}).Run(context.Background(), []model.Link{videoLink})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Succeeded)

		var warned bool
		for _, e := range f.events {
			warned = warned || e.Level == LevelWarning
		}
		assert.True(t, warned)
	})
}

func TestManager_ConvertPhotos(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager(Options{ConvertPhotos: true}, nil).Run(context.Background(), []model.Link{photoLink})
	require.NoError(t, err)

	data, err := afero.ReadFile(f.fs, "/out/bob/7302_0.jpeg")
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestManager_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.manager(Options{}, nil).Run(ctx, []model.Link{videoLink, photoLink})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, summary.NotStarted)
	assert.Empty(t, f.errorLines(t))
	assert.Zero(t, f.cache.Len())
}

// snapshot lists every file under /out with its content.
func snapshot(t *testing.T, fs afero.Fs) map[string]string {
	t.Helper()
	files := map[string]string{}
	exists, _ := afero.DirExists(fs, "/out")
	if !exists {
		return files
	}
	err := afero.Walk(fs, "/out", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := afero.ReadFile(fs, path)
		files[path] = string(data)
		return err
	})
	require.NoError(t, err)
	return files
}

func TestManager_SameIdentityFromTwoLinks(t *testing.T) {
	f := newFixture(t)

	// Both requests are held until the other arrives so the saves overlap
	var arrived atomic.Int32
	ready := make(chan struct{})
	payload := bytes.Repeat([]byte("m"), 4*chunkSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if arrived.Add(1) == 2 {
			close(ready)
		}
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
		}
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	f.provider.items["7301"] = []string{srv.URL + "/media/video.mp4"}

	withQuery := videoLink + "?lang=en"
	summary, err := f.manager(Options{Workers: 2}, nil).Run(context.Background(), []model.Link{videoLink, withQuery})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Failed)

	data, err := afero.ReadFile(f.fs, "/out/alice/7301.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	for _, link := range []model.Link{videoLink, withQuery} {
		ok, _ := f.cache.Contains(context.Background(), link)
		assert.True(t, ok, link)
	}
}
