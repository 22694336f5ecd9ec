package vision

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/your-org/eventpix/internal/config"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/observability"
)

const (
	detectModelFile = "det_10g.onnx"
	embedModelFile  = "w600k_r50.onnx"
)

// Face is one extracted face: the canonical descriptor plus the provider
// annotations the legacy matcher consumes.
type Face struct {
	Descriptor models.Descriptor
	Confidence float32
	Pose       Pose
}

// Extractor turns raw image bytes into face descriptors. Models load lazily
// on first use; concurrent callers before the first successful load wait on
// the in-flight attempt instead of loading independently. A failed load is
// retried on the next call.
type Extractor struct {
	cfg config.VisionConfig

	mu       sync.Mutex
	detector *Detector
	embedder *Embedder

	// newSessions builds the ONNX sessions from resolved model paths.
	// Replaceable in tests.
	newSessions func(detPath, embPath string) (*Detector, *Embedder, error)
}

// NewExtractor returns an extractor that will load models on first use.
// The ONNX Runtime environment must already be initialized by the caller.
func NewExtractor(cfg config.VisionConfig) *Extractor {
	e := &Extractor{cfg: cfg}
	e.newSessions = func(detPath, embPath string) (*Detector, *Embedder, error) {
		det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
		if err != nil {
			return nil, nil, err
		}
		emb, err := NewEmbedder(embPath)
		if err != nil {
			det.Close()
			return nil, nil, err
		}
		return det, emb, nil
	}
	return e
}

// Extract returns one descriptor per detected face, ordered by detection
// confidence, descending. Zero faces yields an empty result and no error.
func (e *Extractor) Extract(imageData []byte) ([]models.Descriptor, error) {
	faces, err := e.ExtractFaces(imageData)
	if err != nil {
		return nil, err
	}
	descriptors := make([]models.Descriptor, 0, len(faces))
	for _, f := range faces {
		descriptors = append(descriptors, f.Descriptor)
	}
	return descriptors, nil
}

// ExtractFaces is Extract plus the per-face annotations.
func (e *Extractor) ExtractFaces(imageData []byte) ([]Face, error) {
	if err := e.ensureLoaded(); err != nil {
		return nil, err
	}

	start := time.Now()
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}
	observability.InferenceDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start = time.Now()
	detInput := preprocessForDetection(img, e.detector.inputW, e.detector.inputH)
	detections, err := e.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]Face, 0, len(detections))
	start = time.Now()
	for _, det := range detections {
		crop := cropFace(img, det.BBox)
		if crop == nil {
			continue
		}

		embInput := preprocessForEmbedding(crop, e.embedder.inputW, e.embedder.inputH)
		descriptor, err := e.embedder.Embed(embInput)
		if err != nil {
			slog.Warn("embed face", "error", err)
			continue
		}

		faces = append(faces, Face{
			Descriptor: descriptor,
			Confidence: det.Confidence,
			Pose:       poseFromLandmarks(det.Landmarks),
		})
	}
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	return faces, nil
}

// ensureLoaded performs the single-flight lazy model load. The mutex
// serializes concurrent first callers; once detector and embedder are set
// the fast path returns without touching model sources again.
func (e *Extractor) ensureLoaded() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detector != nil && e.embedder != nil {
		return nil
	}

	detPath, err := e.resolveModel(detectModelFile)
	if err != nil {
		return err
	}
	embPath, err := e.resolveModel(embedModelFile)
	if err != nil {
		return err
	}

	slog.Info("loading face models", "detector", detPath, "embedder", embPath)
	det, emb, err := e.newSessions(detPath, embPath)
	if err != nil {
		return &ModelLoadError{Model: detectModelFile, Err: err}
	}

	e.detector = det
	e.embedder = emb
	slog.Info("face models ready")
	return nil
}

// resolveModel walks the configured model sources in order and returns the
// path of the first one that yields the file: primary dir, fallback dir,
// then a download from the remote base URL into the primary dir. Per-source
// failures are logged and swallowed; exhaustion is a ModelLoadError.
func (e *Extractor) resolveModel(name string) (string, error) {
	type source struct {
		desc    string
		resolve func() (string, error)
	}

	sources := []source{
		{
			desc: "models dir",
			resolve: func() (string, error) {
				return statModel(filepath.Join(e.cfg.ModelsDir, name))
			},
		},
	}
	if e.cfg.FallbackModelsDir != "" {
		sources = append(sources, source{
			desc: "fallback models dir",
			resolve: func() (string, error) {
				return statModel(filepath.Join(e.cfg.FallbackModelsDir, name))
			},
		})
	}
	if e.cfg.ModelBaseURL != "" {
		sources = append(sources, source{
			desc: "remote download",
			resolve: func() (string, error) {
				return e.downloadModel(name)
			},
		})
	}

	var lastErr error
	for _, src := range sources {
		path, err := src.resolve()
		if err == nil {
			return path, nil
		}
		lastErr = err
		slog.Warn("model source failed", "model", name, "source", src.desc, "error", err)
	}

	return "", &ModelLoadError{Model: name, Err: lastErr}
}

func statModel(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("model file %s is empty", path)
	}
	return path, nil
}

// downloadModel fetches the model into the primary models dir with a bounded
// timeout so a dead remote cannot hang first use indefinitely.
func (e *Extractor) downloadModel(name string) (string, error) {
	url := e.cfg.ModelBaseURL + "/" + name
	target := filepath.Join(e.cfg.ModelsDir, name)

	if err := os.MkdirAll(e.cfg.ModelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	client := &http.Client{Timeout: e.cfg.ModelFetchTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(e.cfg.ModelsDir, name+".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move model into place: %w", err)
	}

	slog.Info("downloaded model", "model", name, "url", url)
	return target, nil
}

// Close releases the ONNX sessions if they were loaded.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detector != nil {
		e.detector.Close()
		e.detector = nil
	}
	if e.embedder != nil {
		e.embedder.Close()
		e.embedder = nil
	}
}
