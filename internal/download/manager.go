package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/handiism/multitok/internal/cache"
	"github.com/handiism/multitok/internal/metadata"
	"github.com/handiism/multitok/internal/model"
	"github.com/handiism/multitok/internal/provider"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Extractor derives the identity of a link.
type Extractor interface {
	Extract(ctx context.Context, link model.Link) (model.ContentIdentity, error)
}

// MediaOpener opens a streaming GET for a media URL.
type MediaOpener interface {
	Open(ctx context.Context, rawURL string, header http.Header) (*http.Response, error)
}

// ErrorLog records failed links.
type ErrorLog interface {
	Append(link model.Link, cause error) error
}

// MetadataFetcher downloads the metadata of a post.
type MetadataFetcher interface {
	Fetch(ctx context.Context, link model.Link) (*metadata.Record, error)
}

// Options controls what a Manager downloads and where.
type Options struct {
	Workers       int
	Watermark     bool
	SaveMetadata  bool
	ConvertPhotos bool
	PhotoMaxSize  int
	Layout        model.Layout
}

// Dependencies are the collaborators of a Manager. Metadata and ErrorLog
// may be nil.
type Dependencies struct {
	Provider  provider.Provider
	Extractor Extractor
	Client    MediaOpener
	Saver     *Saver
	Cache     cache.Store
	ErrorLog  ErrorLog
	Metadata  MetadataFetcher
	Logger    *slog.Logger
}

// Summary is the result of a run.
type Summary struct {
	Total     int
	Skipped   int
	Succeeded int
	Failed    int

	// NotStarted counts links that were never dispatched because the
	// run was canceled.
	NotStarted int

	// Outcomes holds one entry per unique dispatched or skipped link, in
	// input order.
	Outcomes []model.Outcome
}

// Manager downloads a list of links with a fixed pool of workers.
type Manager struct {
	opts Options
	deps Dependencies
	log  *slog.Logger

	totalBytes      int64
	receivedBytes   int64
	totalFiles      int32
	downloadedFiles int32

	onProgress func(ProgressEvent)
}

type job struct {
	index int
	link  model.Link
}

// NewManager creates a new download Manager.
func NewManager(opts Options, deps Dependencies, onProgress func(ProgressEvent)) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		opts:       opts,
		deps:       deps,
		log:        log,
		onProgress: onProgress,
	}
}

// Run processes links and blocks until every dispatched link reached a
// terminal state. Links already in the cache are skipped without any
// network access. Failures of single links never stop the run; the
// returned error is non-nil only when ctx was canceled.
func (m *Manager) Run(ctx context.Context, links []model.Link) (*Summary, error) {
	links = Unique(links)

	outcomes := make([]*model.Outcome, len(links))
	var mu sync.Mutex
	record := func(index int, outcome model.Outcome) {
		mu.Lock()
		outcomes[index] = &outcome
		mu.Unlock()
	}

	queue := make(chan job, m.opts.Workers)

	var g errgroup.Group
	for range m.opts.Workers {
		g.Go(func() error {
			for j := range queue {
				record(j.index, m.process(ctx, j.link))
			}
			return nil
		})
	}

produce:
	for i, link := range links {
		if ctx.Err() != nil {
			break
		}

		if m.cached(ctx, link) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s (already downloaded)", link), Level: LevelVerbose})
			record(i, model.Outcome{Link: link, State: model.OutcomeSkipped})
			continue
		}

		select {
		case queue <- job{index: i, link: link}:
		case <-ctx.Done():
			break produce
		}
	}
	close(queue)
	g.Wait()

	summary := &Summary{Total: len(links)}
	for _, o := range outcomes {
		if o == nil {
			summary.NotStarted++
			continue
		}
		switch o.State {
		case model.OutcomeSkipped:
			summary.Skipped++
		case model.OutcomeSucceeded:
			summary.Succeeded++
		case model.OutcomeFailed:
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, *o)
	}

	return summary, ctx.Err()
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes), atomic.LoadInt64(&m.totalBytes),
		atomic.LoadInt32(&m.downloadedFiles), atomic.LoadInt32(&m.totalFiles)
}

func (m *Manager) cached(ctx context.Context, link model.Link) bool {
	done, err := m.deps.Cache.Contains(ctx, link)
	if err != nil {
		m.log.Warn("cache lookup failed", slog.String("link", link.String()), slog.Any("error", err))
		return false
	}
	return done
}

func (m *Manager) process(ctx context.Context, link model.Link) model.Outcome {
	log := m.log.With(slog.String("link", link.String()))

	if err := m.download(ctx, link, log); err != nil {
		m.fail(link, err, log)
		return model.Outcome{Link: link, State: model.OutcomeFailed, Err: err}
	}

	// The files are complete, so record them even if the run is being
	// canceled. A cache failure only means the link is fetched again.
	if err := m.deps.Cache.MarkDone(context.WithoutCancel(ctx), link); err != nil {
		log.Warn("cache update failed", slog.Any("error", err))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not cache %s: %v", link, err), Level: LevelWarning})
	}

	log.Debug("link done")
	return model.Outcome{Link: link, State: model.OutcomeSucceeded}
}

func (m *Manager) download(ctx context.Context, link model.Link, log *slog.Logger) error {
	id, err := m.deps.Extractor.Extract(ctx, link)
	if err != nil {
		return err
	}
	log = log.With(slog.String("author", id.Author), slog.String("id", id.ContentID))

	result, err := m.deps.Provider.Fetch(ctx, link, id, m.opts.Watermark)
	if err != nil {
		return err
	}
	if result == nil || len(result.Items) == 0 {
		return model.ErrContentUnavailable
	}

	atomic.AddInt32(&m.totalFiles, int32(len(result.Items)))
	for i, item := range result.Items {
		if err := m.saveItem(ctx, id, i, item, result.Header, log); err != nil {
			return err
		}
	}

	if m.opts.SaveMetadata && id.ContentType == model.ContentVideo && m.deps.Metadata != nil {
		m.saveMetadata(ctx, link, id, log)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %s", link), Level: LevelSuccess})
	return nil
}

func (m *Manager) saveItem(ctx context.Context, id model.ContentIdentity, index int, item model.MediaItem, header http.Header, log *slog.Logger) error {
	dest := m.opts.Layout.MediaPath(id, index)
	name := filepath.Base(dest)

	skip, err := m.deps.Saver.ShouldSkip(dest)
	if err != nil {
		return err
	}
	if skip {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping: %s (already exists)", name), Level: LevelInfo})
		atomic.AddInt32(&m.downloadedFiles, 1)
		return nil
	}

	resp, err := m.deps.Client.Open(ctx, item.URL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.ContentLength > 0 {
		atomic.AddInt64(&m.totalBytes, resp.ContentLength)
	}

	var last int64
	res, err := m.deps.Saver.Save(ctx, dest, resp.Body, resp.ContentLength, func(written, total int64) {
		atomic.AddInt64(&m.receivedBytes, written-last)
		last = written
	})
	if res.CreatedDir {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Folder created: %s", filepath.Dir(dest)), Level: LevelInfo})
	}
	if err != nil {
		return err
	}

	if item.Kind == model.ContentPhoto && (m.opts.ConvertPhotos || m.opts.PhotoMaxSize > 0) {
		if _, err := m.deps.Saver.NormalizePhoto(ctx, dest, m.opts.PhotoMaxSize); err != nil {
			log.Warn("photo normalisation failed", slog.String("file", name), slog.Any("error", err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Could not convert %s: %v", name, err), Level: LevelWarning})
		}
	}

	atomic.AddInt32(&m.downloadedFiles, 1)
	log.Debug("file saved", slog.String("file", dest), slog.Int64("bytes", res.Written))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved: %s", name), Level: LevelVerbose})
	return nil
}

func (m *Manager) saveMetadata(ctx context.Context, link model.Link, id model.ContentIdentity, log *slog.Logger) {
	path := m.opts.Layout.MetadataPath(id, 0)

	err := func() error {
		record, err := m.deps.Metadata.Fetch(ctx, link)
		if err != nil {
			return err
		}
		data, err := record.MarshalIndent()
		if err != nil {
			return err
		}
		return m.deps.Saver.WriteFile(path, data)
	}()
	if err != nil {
		log.Warn("metadata not saved", slog.Any("error", err))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not save metadata for %s: %v", link, err), Level: LevelWarning})
		return
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved metadata: %s", filepath.Base(path)), Level: LevelVerbose})
}

func (m *Manager) fail(link model.Link, err error, log *slog.Logger) {
	kind := model.Classify(err)
	log.Error("download failed", slog.String("kind", kind.String()), slog.Any("error", err))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", link, err), Level: LevelError})

	if kind == model.KindCanceled || m.deps.ErrorLog == nil {
		return
	}
	if werr := m.deps.ErrorLog.Append(link, err); werr != nil {
		log.Error("error log write failed", slog.Any("error", errors.Join(werr, err)))
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
