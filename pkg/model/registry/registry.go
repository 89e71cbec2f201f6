// Package registry manages the local cache of quantized model files:
// discovery, download, and the existence predicate the render path uses.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mdistill/mdistill/internal/logger"
)

// DefaultModel is the model cached when none is configured.
var DefaultModel = ModelInfo{
	Name:         "qwen2.5-3b-instruct-q4_k_m",
	Quantization: "q4_k_m",
	DownloadURL:  "https://huggingface.co/Qwen/Qwen2.5-3B-Instruct-GGUF/resolve/main/qwen2.5-3b-instruct-q4_k_m.gguf",
}

// ModelInfo describes a cached or downloadable model file.
type ModelInfo struct {
	Name         string `json:"name"`
	Quantization string `json:"quantization,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	LocalPath    string `json:"local_path,omitempty"`
}

// Progress reports download progress; total is -1 when unknown.
type Progress func(written, total int64)

// Registry is a flat-file model cache rooted at a directory.
type Registry struct {
	dir    string
	client *http.Client
}

// New creates a Registry rooted at dir. An empty dir uses DefaultDir.
func New(dir string) *Registry {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Registry{dir: dir, client: http.DefaultClient}
}

// DefaultDir returns the default cache location under the user's home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mdistill", "models")
	}
	return filepath.Join(home, ".mdistill", "models")
}

// Dir returns the cache directory.
func (r *Registry) Dir() string {
	return r.dir
}

// PathFor returns the local path a model would be cached at.
func (r *Registry) PathFor(name string) string {
	if !strings.HasSuffix(name, ".gguf") {
		name += ".gguf"
	}
	return filepath.Join(r.dir, name)
}

// Available reports whether path names an existing non-empty model file.
func Available(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// List returns the cached models, sorted by name.
func (r *Registry) List() ([]ModelInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read model cache: %w", err)
	}

	var models []ModelInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gguf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		models = append(models, ModelInfo{
			Name:      strings.TrimSuffix(entry.Name(), ".gguf"),
			SizeBytes: info.Size(),
			LocalPath: filepath.Join(r.dir, entry.Name()),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// EnsureCached downloads the model if it is not already cached and returns
// the local path. Downloads go through a temp file and are renamed into
// place only after the checksum (when known) verifies.
func (r *Registry) EnsureCached(ctx context.Context, m ModelInfo, progress Progress) (string, error) {
	path := r.PathFor(m.Name)
	if Available(path) {
		return path, nil
	}
	if m.DownloadURL == "" {
		return "", fmt.Errorf("model %q is not cached and has no download URL", m.Name)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model cache dir: %w", err)
	}

	logger.Info("downloading model", "model", m.Name, "url", m.DownloadURL)
	tmp := path + ".partial"
	if err := r.download(ctx, m, tmp, progress); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize model download: %w", err)
	}
	return path, nil
}

func (r *Registry) download(ctx context.Context, m ModelInfo, dest string, progress Progress) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("model download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	writer := io.MultiWriter(f, hasher)

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 1<<20)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := writer.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write model file: %w", werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("model download interrupted: %w", rerr)
		}
	}

	if m.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(sum, m.SHA256) {
			return fmt.Errorf("model checksum mismatch: got %s, want %s", sum, m.SHA256)
		}
	}
	return nil
}
