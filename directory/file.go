package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout: agents and crons share one YAML file.
type fileDocument struct {
	Agents []*core.AgentDefinition `yaml:"agents"`
	Crons  []*core.CronDefinition  `yaml:"crons"`
}

// FileOptions holds configuration overrides passed to NewFile().
type FileOptions struct {
	// Watch enables fsnotify-driven reload on file changes.
	Watch bool
	// Logger receives reload diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// File serves agent and cron definitions from a YAML file. It implements
// both core.Directory and core.CronStore. With Watch enabled, edits to the
// file take effect live, so agents can be created and deleted over the
// process lifetime without a restart.
type File struct {
	path   string
	logger logging.Logger

	mu     sync.RWMutex
	agents map[string]*core.AgentDefinition
	crons  map[string]*core.CronDefinition

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFile loads path and returns a File store.
func NewFile(path string, optFns ...func(o *FileOptions)) (*File, error) {
	opts := FileOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	f := &File{
		path:   path,
		logger: opts.Logger,
		agents: make(map[string]*core.AgentDefinition),
		crons:  make(map[string]*core.CronDefinition),
	}
	if err := f.reload(); err != nil {
		return nil, err
	}

	if opts.Watch {
		if err := f.startWatcher(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Load returns the definition for id.
func (f *File) Load(_ context.Context, id string) (*core.AgentDefinition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return def, nil
}

// List returns all currently defined agents.
func (f *File) List(_ context.Context) ([]*core.AgentDefinition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	defs := make([]*core.AgentDefinition, 0, len(f.agents))
	for _, def := range f.agents {
		defs = append(defs, def)
	}
	return defs, nil
}

// Discover returns all defined cron jobs.
func (f *File) Discover(_ context.Context) ([]*core.CronDefinition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	defs := make([]*core.CronDefinition, 0, len(f.crons))
	for _, def := range f.crons {
		defs = append(defs, def)
	}
	return defs, nil
}

// Delete removes a cron definition by name and rewrites the file so a fired
// one-off never comes back after a restart.
func (f *File) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.crons[name]; !ok {
		return fmt.Errorf("cron %q: %w", name, core.ErrCronNotFound)
	}
	delete(f.crons, name)
	return f.persistLocked()
}

// Close stops the file watcher if one is running.
func (f *File) Close() error {
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	<-f.done
	return err
}

// reload parses the file and swaps in the new definition maps.
func (f *File) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read definitions file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse definitions file: %w", err)
	}

	agents := make(map[string]*core.AgentDefinition, len(doc.Agents))
	for _, def := range doc.Agents {
		if def.ID == "" {
			return fmt.Errorf("agent definition without id in %s", f.path)
		}
		agents[def.ID] = def
	}
	crons := make(map[string]*core.CronDefinition, len(doc.Crons))
	for _, def := range doc.Crons {
		if def.Name == "" {
			return fmt.Errorf("cron definition without name in %s", f.path)
		}
		crons[def.Name] = def
	}

	f.mu.Lock()
	f.agents = agents
	f.crons = crons
	f.mu.Unlock()
	return nil
}

// persistLocked writes the current definitions back to disk. Caller holds the
// write lock.
func (f *File) persistLocked() error {
	doc := fileDocument{}
	for _, def := range f.agents {
		doc.Agents = append(doc.Agents, def)
	}
	for _, def := range f.crons {
		doc.Crons = append(doc.Crons, def)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal definitions: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write definitions file: %w", err)
	}
	return nil
}

// startWatcher watches the file's directory; editors replace files rather
// than writing in place, so watching the path alone misses renames.
func (f *File) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch definitions dir: %w", err)
	}

	f.watcher = watcher
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := f.reload(); err != nil {
					f.logger.Warn("definitions reload failed", "path", f.path, "error", err)
					continue
				}
				f.logger.Info("definitions reloaded", "path", f.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("definitions watcher error", "error", err)
			}
		}
	}()
	return nil
}
