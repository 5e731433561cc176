package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	ioutils "github.com/handiism/multitok/internal/io"
	"github.com/handiism/multitok/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// untouchable fails the test if anything reads from it.
type untouchable struct{ t *testing.T }

func (u untouchable) Read([]byte) (int, error) {
	u.t.Fatal("body was read")
	return 0, io.EOF
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), f.after)
	f.after -= n
	return n, nil
}

func TestSaver_Save(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaver(fs, false)

	payload := bytes.Repeat([]byte("x"), 3*chunkSize+17)
	var updates []int64
	res, err := s.Save(context.Background(), "/out/alice/7301.mp4", bytes.NewReader(payload), int64(len(payload)), func(written, total int64) {
		updates = append(updates, written)
		assert.Equal(t, int64(len(payload)), total)
	})
	require.NoError(t, err)

	assert.True(t, res.CreatedDir)
	assert.False(t, res.Skipped)
	assert.Equal(t, int64(len(payload)), res.Written)

	data, err := afero.ReadFile(fs, "/out/alice/7301.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NotEmpty(t, updates)
	assert.Equal(t, int64(len(payload)), updates[len(updates)-1])
	for i := 1; i < len(updates); i++ {
		assert.Greater(t, updates[i], updates[i-1])
	}

	assertNoPartFiles(t, fs, "/out/alice")
}

func assertNoPartFiles(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	parts, err := afero.Glob(fs, filepath.Join(dir, "*"+ioutils.PartSuffix))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestSaver_SkipExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/alice/7301.mp4", []byte("old"), 0644))

	s := NewSaver(fs, true)
	res, err := s.Save(context.Background(), "/out/alice/7301.mp4", untouchable{t}, -1, nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Written)

	data, _ := afero.ReadFile(fs, "/out/alice/7301.mp4")
	assert.Equal(t, "old", string(data))
}

func TestSaver_OverwritesWithoutSkip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/alice/7301.mp4", []byte("old"), 0644))

	s := NewSaver(fs, false)
	res, err := s.Save(context.Background(), "/out/alice/7301.mp4", strings.NewReader("new"), 3, nil)
	require.NoError(t, err)
	assert.False(t, res.CreatedDir)

	data, _ := afero.ReadFile(fs, "/out/alice/7301.mp4")
	assert.Equal(t, "new", string(data))
}

func TestSaver_InterruptedBodyLeavesNoFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaver(fs, true)

	_, err := s.Save(context.Background(), "/out/alice/7301.mp4", &failingReader{after: chunkSize + 5}, -1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIO)

	exists, _ := afero.Exists(fs, "/out/alice/7301.mp4")
	assert.False(t, exists)
	assertNoPartFiles(t, fs, "/out/alice")
}

// rendezvousReader blocks its first Read until every reader of the group
// has started, so the saves overlap.
type rendezvousReader struct {
	r     io.Reader
	group *sync.WaitGroup
	once  sync.Once
}

func (rr *rendezvousReader) Read(p []byte) (int, error) {
	rr.once.Do(func() {
		rr.group.Done()
		rr.group.Wait()
	})
	return rr.r.Read(p)
}

func TestSaver_ConcurrentSavesToOneDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaver(fs, false)
	payload := bytes.Repeat([]byte("v"), 4*chunkSize)

	var started, done sync.WaitGroup
	started.Add(2)
	errs := make([]error, 2)
	for i := range errs {
		done.Add(1)
		go func() {
			defer done.Done()
			body := &rendezvousReader{r: bytes.NewReader(payload), group: &started}
			_, errs[i] = s.Save(context.Background(), "/out/alice/7301.mp4", body, int64(len(payload)), nil)
		}()
	}
	done.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	data, err := afero.ReadFile(fs, "/out/alice/7301.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assertNoPartFiles(t, fs, "/out/alice")
}

func TestSaver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSaver(afero.NewMemMapFs(), false)
	_, err := s.Save(ctx, "/out/alice/7301.mp4", strings.NewReader("data"), 4, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaver_ReadOnly(t *testing.T) {
	s := NewSaver(afero.NewReadOnlyFs(afero.NewMemMapFs()), false)
	_, err := s.Save(context.Background(), "/out/alice/7301.mp4", strings.NewReader("data"), 4, nil)
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestParseLinks(t *testing.T) {
	links, err := ParseLinks(strings.NewReader("https://a/@x/video/1\n\n   \n  https://a/@y/photo/2  \nnot a link\n"))
	require.NoError(t, err)
	assert.Equal(t, []model.Link{"https://a/@x/video/1", "https://a/@y/photo/2", "not a link"}, links)
}

func TestReadLinks_Missing(t *testing.T) {
	_, err := ReadLinks(afero.NewMemMapFs(), "/links.txt")
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestUnique(t *testing.T) {
	got := Unique([]model.Link{"a", "b", "a", "c", "b"})
	assert.Equal(t, []model.Link{"a", "b", "c"}, got)
}
