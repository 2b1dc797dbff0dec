package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bdougie/videojudge/internal/models"
)

// FramePattern is the ffmpeg output pattern for extracted frames
const FramePattern = "frame_%06d.jpg"

var frameExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Extractor turns a video into ordered, downscaled frames
type Extractor struct {
	interval float64
	image    ImageOptions
	logger   *slog.Logger
}

func New(interval float64, image ImageOptions, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{interval: interval, image: image, logger: logger}
}

// Frames extracts the frames of videoPath into framesDir and returns them in
// sampling order.
func (e *Extractor) Frames(ctx context.Context, videoPath, framesDir string) ([]models.Frame, error) {
	if err := ExtractFrames(ctx, videoPath, framesDir, e.interval, e.logger); err != nil {
		return nil, err
	}
	paths, err := ListFrames(framesDir)
	if err != nil {
		return nil, err
	}
	return FramesFromPaths(paths, e.image), nil
}

// ExtractFrames samples one frame every interval seconds from videoPath into
// framesDir. Extraction is skipped when framesDir already holds frames.
func ExtractFrames(ctx context.Context, videoPath, framesDir string, interval float64, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", interval)
	}
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}

	if existing, err := ListFrames(framesDir); err == nil && len(existing) > 0 {
		logger.Info("frames already exist, skipping extraction", "dir", framesDir, "count", len(existing))
		return nil
	}

	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return fmt.Errorf("failed to create frame directory '%s': %w", framesDir, err)
	}

	logger.Info("extracting frames", "video", videoPath, "dir", framesDir, "interval", interval)

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-vf", "fps="+strconv.FormatFloat(1/interval, 'f', -1, 64),
		"-vsync", "vfr",
		filepath.Join(framesDir, FramePattern),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	logger.Info("extracted frames", "dir", framesDir)
	return nil
}

// ListFrames returns the image files in dir sorted by name
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// FramesFromPaths builds frames whose index is their position in paths and
// whose bytes are loaded and downscaled lazily.
func FramesFromPaths(paths []string, opts ImageOptions) []models.Frame {
	frames := make([]models.Frame, len(paths))
	for i, path := range paths {
		frames[i] = models.Frame{
			Index: i,
			ID:    filepath.Base(path),
			Load:  func() ([]byte, error) { return LoadImage(path, opts) },
		}
	}
	return frames
}
