package vision

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/eventpix/internal/config"
)

func writeModel(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("onnx-bytes"), 0o644))
}

func TestResolveModelPrimaryDir(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, detectModelFile)

	e := NewExtractor(config.VisionConfig{ModelsDir: dir})
	path, err := e.resolveModel(detectModelFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, detectModelFile), path)
}

func TestResolveModelFallbackDir(t *testing.T) {
	primary := t.TempDir()
	fallback := t.TempDir()
	writeModel(t, fallback, detectModelFile)

	e := NewExtractor(config.VisionConfig{
		ModelsDir:         primary,
		FallbackModelsDir: fallback,
	})
	path, err := e.resolveModel(detectModelFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fallback, detectModelFile), path)
}

func TestResolveModelDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+detectModelFile, r.URL.Path)
		_, _ = w.Write([]byte("downloaded-onnx-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	e := NewExtractor(config.VisionConfig{
		ModelsDir:         dir,
		ModelBaseURL:      srv.URL,
		ModelFetchTimeout: 5 * time.Second,
	})

	path, err := e.resolveModel(detectModelFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, detectModelFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "downloaded-onnx-bytes", string(data))
}

func TestResolveModelDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := NewExtractor(config.VisionConfig{
		ModelsDir:         t.TempDir(),
		ModelBaseURL:      srv.URL,
		ModelFetchTimeout: 5 * time.Second,
	})

	_, err := e.resolveModel(detectModelFile)
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, detectModelFile, loadErr.Model)
}

func TestResolveModelExhaustion(t *testing.T) {
	e := NewExtractor(config.VisionConfig{ModelsDir: t.TempDir()})

	_, err := e.resolveModel(embedModelFile)
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, embedModelFile, loadErr.Model)
}

func TestResolveModelRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, detectModelFile), nil, 0o644))

	e := NewExtractor(config.VisionConfig{ModelsDir: dir})
	_, err := e.resolveModel(detectModelFile)
	assert.Error(t, err)
}

func TestEnsureLoadedSingleFlight(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, detectModelFile)
	writeModel(t, dir, embedModelFile)

	e := NewExtractor(config.VisionConfig{ModelsDir: dir})
	var loads atomic.Int32
	e.newSessions = func(detPath, embPath string) (*Detector, *Embedder, error) {
		loads.Add(1)
		return &Detector{}, &Embedder{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.ensureLoaded())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestEnsureLoadedRetriesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, detectModelFile)
	writeModel(t, dir, embedModelFile)

	e := NewExtractor(config.VisionConfig{ModelsDir: dir})
	var loads atomic.Int32
	e.newSessions = func(detPath, embPath string) (*Detector, *Embedder, error) {
		if loads.Add(1) == 1 {
			return nil, nil, errors.New("session init failed")
		}
		return &Detector{}, &Embedder{}, nil
	}

	err := e.ensureLoaded()
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)

	require.NoError(t, e.ensureLoaded())
	assert.Equal(t, int32(2), loads.Load())
}
