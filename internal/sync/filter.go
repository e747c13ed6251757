package sync

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	gosync "sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// metaDirName is excluded from every walk: it holds the workspace's own
// lock file, config, and cached state, never a synced document.
const metaDirName = ".pagesync"

// safetyTempSuffixes are always excluded, regardless of ignore file
// contents, because they indicate an in-progress write on either side.
var safetyTempSuffixes = []string{".partial", ".tmp"}

const safetyTempPrefix = "~"

// FilterResult is the outcome of one path's filter evaluation.
type FilterResult struct {
	Included bool
	Reason   string
}

// FilterConfig controls the walker's inclusion cascade: markdown extension
// plus sync root meta dir is mandatory, the ignore file is optional.
type FilterConfig struct {
	IgnoreFile string // e.g. ".pagesyncignore"; "" disables layer 3
}

// FilterEngine implements the walker's three-layer cascade: mandatory
// structural exclusions, markdown-only inclusion, and ignore-file patterns.
// Grounded on the safety-pattern and .odignore-cache design of the
// teacher's filter, trimmed to this domain's single content type.
type FilterEngine struct {
	cfg      FilterConfig
	logger   *slog.Logger
	syncRoot string

	ignoreCache map[string]*ignore.GitIgnore
	mu          gosync.RWMutex
}

// NewFilterEngine builds a filter for the given sync root.
func NewFilterEngine(cfg FilterConfig, syncRoot string, logger *slog.Logger) *FilterEngine {
	if logger == nil {
		logger = slog.Default()
	}

	return &FilterEngine{
		cfg:         cfg,
		logger:      logger,
		syncRoot:    syncRoot,
		ignoreCache: make(map[string]*ignore.GitIgnore),
	}
}

// ShouldSync evaluates whether path (relative to the sync root) belongs in
// the synced tree. Directories pass through structural and ignore checks;
// files are additionally required to carry a markdown extension.
func (f *FilterEngine) ShouldSync(path string, isDir bool) FilterResult {
	if result := f.checkStructural(path, isDir); !result.Included {
		return result
	}

	if !isDir {
		if result := f.checkMarkdownExtension(path); !result.Included {
			return result
		}
	}

	return f.checkIgnoreFile(path, isDir)
}

func (f *FilterEngine) checkStructural(path string, isDir bool) FilterResult {
	name := filepath.Base(path)

	if isDir && name == metaDirName {
		return FilterResult{Included: false, Reason: "workspace meta directory"}
	}

	if !isDir {
		lower := strings.ToLower(name)

		for _, suffix := range safetyTempSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return FilterResult{Included: false, Reason: fmt.Sprintf("temp file pattern %s", suffix)}
			}
		}

		if strings.HasPrefix(name, safetyTempPrefix) {
			return FilterResult{Included: false, Reason: "temp file pattern ~*"}
		}
	}

	return FilterResult{Included: true}
}

func (f *FilterEngine) checkMarkdownExtension(path string) FilterResult {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".md" && ext != ".markdown" {
		return FilterResult{Included: false, Reason: "not a markdown file"}
	}

	return FilterResult{Included: true}
}

func (f *FilterEngine) checkIgnoreFile(path string, isDir bool) FilterResult {
	if f.cfg.IgnoreFile == "" {
		return FilterResult{Included: true}
	}

	dir := filepath.Dir(path)
	gi := f.loadIgnoreFile(dir)

	if gi == nil {
		return FilterResult{Included: true}
	}

	matchPath := filepath.ToSlash(path)
	if isDir {
		matchPath += "/"
	}

	if gi.MatchesPath(matchPath) {
		return FilterResult{Included: false, Reason: "excluded by " + f.cfg.IgnoreFile}
	}

	return FilterResult{Included: true}
}

// loadIgnoreFile loads and caches the ignore file for dir, caching a nil
// entry when none is present so repeated walks of an ignoreless directory
// don't retry the filesystem on every entry.
func (f *FilterEngine) loadIgnoreFile(dir string) *ignore.GitIgnore {
	f.mu.RLock()
	gi, cached := f.ignoreCache[dir]
	f.mu.RUnlock()

	if cached {
		return gi
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if gi, cached = f.ignoreCache[dir]; cached {
		return gi
	}

	ignorePath := filepath.Join(f.syncRoot, dir, f.cfg.IgnoreFile)

	parsed, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		f.logger.Debug("no ignore file found", "dir", dir, "path", ignorePath)
		f.ignoreCache[dir] = nil

		return nil
	}

	f.ignoreCache[dir] = parsed

	return parsed
}
