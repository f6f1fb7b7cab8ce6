package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xpersona/agentdex/internal/domain/suggest"
)

// heuristicsFile mirrors the keyword table YAML layout. Empty lists
// keep the built-in tables.
type heuristicsFile struct {
	TechnicalTokens []string `yaml:"technical_tokens"`
	QuestionWords   []string `yaml:"question_words"`
	StopWords       []string `yaml:"stop_words"`
	ProtocolNames   []string `yaml:"protocol_names"`
}

// HeuristicsWatcher serves suggestion keyword tables and hot-reloads
// them when the backing file changes. With no path configured it
// serves the built-in tables.
type HeuristicsWatcher struct {
	mu      sync.RWMutex
	current suggest.Heuristics

	path string
	log  *zap.Logger
}

// NewHeuristicsWatcher loads the keyword tables from path. An empty
// path yields a watcher that always serves the defaults.
func NewHeuristicsWatcher(path string, log *zap.Logger) (*HeuristicsWatcher, error) {
	w := &HeuristicsWatcher{
		current: suggest.DefaultHeuristics(),
		path:    path,
		log:     log,
	}
	if path == "" {
		return w, nil
	}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Heuristics returns the current keyword tables.
func (w *HeuristicsWatcher) Heuristics() suggest.Heuristics {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Watch blocks until ctx is cancelled, reloading the keyword tables
// whenever the file changes. Failed reloads keep the previous tables.
func (w *HeuristicsWatcher) Watch(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating heuristics watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.log.Warn("failed to close heuristics watcher", zap.Error(err))
		}
	}()

	// Watch the directory so atomic renames over the file are seen.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}
	w.log.Info("watching suggestion heuristics", zap.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors replace files with rename; give the new file a
			// moment to land.
			if event.Has(fsnotify.Rename) {
				time.Sleep(200 * time.Millisecond)
			}
			if err := w.reload(); err != nil {
				w.log.Warn("heuristics reload failed, keeping previous tables", zap.Error(err))
				continue
			}
			w.log.Info("suggestion heuristics reloaded", zap.String("path", w.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("heuristics watcher error", zap.Error(err))
		}
	}
}

func (w *HeuristicsWatcher) reload() error {
	data, err := os.ReadFile(filepath.Clean(w.path))
	if err != nil {
		return fmt.Errorf("reading heuristics %s: %w", w.path, err)
	}

	var file heuristicsFile
	if err := yaml.Unmarshal(expandEnvVars(data), &file); err != nil {
		return fmt.Errorf("parsing heuristics %s: %w", w.path, err)
	}

	h := suggest.DefaultHeuristics()
	if len(file.TechnicalTokens) > 0 {
		h.TechnicalTokens = file.TechnicalTokens
	}
	if len(file.QuestionWords) > 0 {
		h.QuestionWords = file.QuestionWords
	}
	if len(file.StopWords) > 0 {
		h.StopWords = file.StopWords
	}
	if len(file.ProtocolNames) > 0 {
		h.ProtocolNames = file.ProtocolNames
	}

	w.mu.Lock()
	w.current = h
	w.mu.Unlock()
	return nil
}
