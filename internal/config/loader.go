package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/metrics"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// Loader reads the session documents and watches the tree for changes.
type Loader struct {
	opts     Options
	treePath string
	mu       sync.RWMutex
	current  *model.Tree
	onChange []func(*model.Tree)
}

// Load reads every document named by opts. The .env file is applied to the
// process environment first so that custom variables can reference it.
func Load(opts Options) (*Loader, *Bundle, error) {
	if opts.CustomPath != "" {
		if err := loadEnv(filepath.Join(opts.CustomPath, envFile)); err != nil {
			return nil, nil, err
		}
	}

	treePath, err := findTree(opts)
	if err != nil {
		return nil, nil, err
	}
	l := &Loader{opts: opts, treePath: treePath}
	tree, err := l.load()
	if err != nil {
		return nil, nil, err
	}
	l.current = tree

	b := &Bundle{Tree: tree, TreePath: treePath}
	if opts.CustomPath != "" {
		if b.APIs, err = LoadAPIDefinitions(filepath.Join(opts.CustomPath, apiDefinitionsDir)); err != nil {
			return nil, nil, err
		}
	}
	if opts.MockPath != "" {
		if b.Mocks, err = LoadMocks(opts.MockPath); err != nil {
			return nil, nil, err
		}
	}
	return l, b, nil
}

// Tree returns the current (latest accepted) tree.
func (l *Loader) Tree() *model.Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// TreePath is the file the tree was read from.
func (l *Loader) TreePath() string { return l.treePath }

// OnChange registers a callback invoked whenever a reloaded tree is accepted.
func (l *Loader) OnChange(fn func(*model.Tree)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch hot-reloads the tree on file changes until stop is called. The
// directory is watched rather than the file so editors that replace the file
// on save are picked up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tree watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.treePath)); err != nil {
		w.Close()
		return nil, fmt.Errorf("tree watcher add %s: %w", l.treePath, err)
	}

	target := filepath.Clean(l.treePath)
	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Error("tree reload rejected, keeping the current tree", "path", l.treePath, "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("tree watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload re-reads the tree file. The new tree replaces the current one only
// when it parses and passes Options.Check.
func (l *Loader) Reload() (*model.Tree, error) {
	tree, err := l.load()
	if err == nil && l.opts.Check != nil {
		err = l.opts.Check(tree)
	}
	if err != nil {
		metrics.TreeReloads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	metrics.TreeReloads.WithLabelValues("accepted").Inc()

	l.mu.Lock()
	l.current = tree
	callbacks := make([]func(*model.Tree), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(tree)
	}
	slog.Info("tree reloaded", "path", l.treePath, "name", tree.Name)
	return tree, nil
}

func (l *Loader) load() (*model.Tree, error) {
	tree, err := LoadTree(l.treePath)
	if err != nil {
		return nil, err
	}
	expandVariables(tree, l.opts.CustomPath)
	return tree, nil
}

// LoadTree parses one tree document (YAML or JSON).
func LoadTree(path string) (*model.Tree, error) {
	var tree model.Tree
	if err := decodeFile(path, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// LoadAPIDefinitions parses every document in dir, one definition per file,
// in file name order. A missing directory yields no definitions.
func LoadAPIDefinitions(dir string) ([]*action.APIDefinition, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no api definitions directory", "path", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read api definitions %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var defs []*action.APIDefinition
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var def action.APIDefinition
		if err := decodeFile(path, &def); err != nil {
			return nil, err
		}
		if def.RequestTimeout == 0 {
			def.RequestTimeout = action.DefaultRequestTimeout
		}
		defs = append(defs, &def)
	}
	return defs, nil
}

// LoadMocks parses a mock response document: a mapping from URL to body.
func LoadMocks(path string) (map[string]any, error) {
	mocks := make(map[string]any)
	if err := decodeFile(path, &mocks); err != nil {
		return nil, err
	}
	return mocks, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func findTree(opts Options) (string, error) {
	if opts.TreePath != "" {
		return opts.TreePath, nil
	}
	if opts.CustomPath == "" {
		return "", errors.New("either a custom path or a tree path is required")
	}
	for _, ext := range documentExts {
		p := filepath.Join(opts.CustomPath, operationMenusDir, treeBaseName+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no %s found under %s", treeBaseName, filepath.Join(opts.CustomPath, operationMenusDir))
}

func isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range documentExts {
		if ext == e {
			return true
		}
	}
	return false
}

// loadEnv applies a .env file without overriding variables already set.
func loadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

// expandVariables resolves $VAR and ${VAR} references in the tree's custom
// variables against the environment. WORKSPACE is the custom path's parent.
func expandVariables(tree *model.Tree, customPath string) {
	workspace := ""
	if customPath != "" {
		if abs, err := filepath.Abs(customPath); err == nil {
			workspace = filepath.Dir(abs)
		}
	}
	for k, v := range tree.CustomVariables {
		tree.CustomVariables[k] = os.Expand(v, func(name string) string {
			if name == workspaceVariable && workspace != "" {
				return workspace
			}
			return os.Getenv(name)
		})
	}
}
