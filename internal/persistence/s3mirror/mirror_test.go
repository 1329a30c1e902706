package s3mirror

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The SDK's shared HTTP transport keeps idle connections around.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestObjectKey(t *testing.T) {
	dataDir := t.TempDir()
	inside := filepath.Join(dataDir, "runs", "r1", "snapshots", "00000020.snap.zst")
	writeFile(t, inside, "x")
	outside := filepath.Join(t.TempDir(), "elsewhere.txt")
	writeFile(t, outside, "x")

	m := &Mirror{dataDir: dataDir, prefix: "aoc/prod"}
	key, err := m.objectKey(inside)
	require.NoError(t, err)
	assert.Equal(t, "aoc/prod/runs/r1/snapshots/00000020.snap.zst", key)

	m.prefix = ""
	key, err = m.objectKey(inside)
	require.NoError(t, err)
	assert.Equal(t, "runs/r1/snapshots/00000020.snap.zst", key)

	_, err = m.objectKey(outside)
	require.Error(t, err)

	_, err = m.objectKey(filepath.Join(dataDir, "missing"))
	require.Error(t, err)
}

func TestNormalizeObjectKey(t *testing.T) {
	cases := map[string]string{
		"/a/b":      "a/b",
		`a\b\c`:     "a/b/c",
		"a/../b":    "b",
		"../escape": "",
		"a/../../x": "",
		"..":        "",
		"./a/./b":   "a/b",
		"  ":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeObjectKey(in), in)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	fails   int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "unsupported", http.StatusNotImplemented)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		http.Error(w, "slow down", http.StatusServiceUnavailable)
		return
	}
	f.objects[strings.TrimPrefix(r.URL.Path, "/")] = body
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeS3) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		Bucket:          "runs-bucket",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestMirrorUploadsThroughS3API(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dataDir := t.TempDir()
	local := filepath.Join(dataDir, "runs", "r1", "rounds", "rounds-00000000.jsonl.zst")
	writeFile(t, local, "segment-bytes")

	m := NewMirror(newTestClient(t, srv), dataDir, "aoc", Options{Workers: 1}, nil)
	m.Enqueue(local)
	m.Close()

	body, ok := fake.get("runs-bucket/aoc/runs/r1/rounds/rounds-00000000.jsonl.zst")
	require.True(t, ok, "object not uploaded")
	assert.Contains(t, string(body), "segment-bytes")

	st := m.Stats()
	assert.Equal(t, uint64(1), st.EnqueuedTotal)
	assert.Equal(t, uint64(1), st.UploadSuccessTotal)
	assert.Zero(t, st.UploadFailTotal)
}

func TestClientPutFileErrors(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	c := newTestClient(t, srv)

	require.Error(t, c.PutFile(context.Background(), "../nope", "whatever"))
	require.Error(t, c.PutFile(context.Background(), "k", filepath.Join(t.TempDir(), "missing")))
	require.Error(t, c.PutFile(context.Background(), "k", t.TempDir()))

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

type flakyUploader struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (u *flakyUploader) PutFile(_ context.Context, _, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.calls <= u.failures {
		return errors.New("transient")
	}
	return nil
}

func TestMirrorRetriesWithBackoff(t *testing.T) {
	dataDir := t.TempDir()
	local := filepath.Join(dataDir, "a.snap.zst")
	writeFile(t, local, "x")

	var pauses []int
	up := &flakyUploader{failures: 2}
	m := NewMirror(up, dataDir, "", Options{
		Workers: 1,
		Backoff: func(attempt int) time.Duration { pauses = append(pauses, attempt); return 0 },
	}, nil)
	m.Enqueue(local)
	m.Close()

	assert.Equal(t, 3, up.calls)
	assert.Equal(t, []int{1, 2}, pauses)
	assert.Equal(t, uint64(1), m.Stats().UploadSuccessTotal)
}

func TestMirrorGivesUpAfterMaxAttempts(t *testing.T) {
	dataDir := t.TempDir()
	local := filepath.Join(dataDir, "a.snap.zst")
	writeFile(t, local, "x")

	up := &flakyUploader{failures: 100}
	m := NewMirror(up, dataDir, "", Options{
		Workers:     1,
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return 0 },
	}, nil)
	m.Enqueue(local)
	m.Close()

	assert.Equal(t, 3, up.calls)
	st := m.Stats()
	assert.Equal(t, uint64(1), st.UploadFailTotal)
	assert.NotZero(t, st.LastErrorUnix)
}

type blockingUploader struct{ release chan struct{} }

func (u *blockingUploader) PutFile(context.Context, string, string) error {
	<-u.release
	return nil
}

func TestMirrorDropsWhenSaturated(t *testing.T) {
	dataDir := t.TempDir()
	local := filepath.Join(dataDir, "a.snap.zst")
	writeFile(t, local, "x")

	up := &blockingUploader{release: make(chan struct{})}
	m := NewMirror(up, dataDir, "", Options{Workers: 1, QueueCapacity: 1, EnqueueWait: time.Millisecond}, nil)

	// One job occupies the worker and one fills the queue; the rest drop.
	m.Enqueue(local)
	require.Eventually(t, func() bool { return m.Stats().QueueDepth == 0 }, time.Second, time.Millisecond)
	m.Enqueue(local)
	m.Enqueue(local)
	m.Enqueue(local)

	st := m.Stats()
	assert.Equal(t, uint64(4), st.EnqueuedTotal)
	assert.Equal(t, uint64(2), st.DroppedTotal)
	assert.Equal(t, uint64(2), st.QueueSaturatedTotal)

	close(up.release)
	m.Close()
	assert.Equal(t, uint64(2), m.Stats().UploadSuccessTotal)
}

func TestNilMirrorIsInert(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	m.Close()
	assert.Equal(t, Stats{}, m.Stats())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AOC_MIRROR_S3_BUCKET", "b")
	t.Setenv("AOC_MIRROR_S3_REGION", "eu-west-1")
	t.Setenv("AOC_MIRROR_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("AOC_MIRROR_S3_PATH_STYLE", "true")
	t.Setenv("AOC_MIRROR_S3_PREFIX", "p")

	cfg, ok := ConfigFromEnv()
	require.True(t, ok)
	assert.Equal(t, Config{Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000", PathStyle: true, Prefix: "p"}, cfg)

	t.Setenv("AOC_MIRROR_S3_BUCKET", "")
	_, ok = ConfigFromEnv()
	assert.False(t, ok)
}
