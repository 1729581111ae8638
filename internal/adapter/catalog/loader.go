package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/logger"
)

// catalogFile is the yaml shape of a catalog overrides file. Agent entries
// reference models by name; chains are resolved against the file's models
// plus whatever is already registered.
type catalogFile struct {
	Models []*domain.ModelProfile `yaml:"models"`
	Agents []agentEntry           `yaml:"agents"`
}

type agentEntry struct {
	AgentID             string   `yaml:"agent_id"`
	Primary             string   `yaml:"primary"`
	FallbackChain       []string `yaml:"fallback_chain"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	MaxConcurrent       int      `yaml:"max_concurrent"`
	TasteWeight         float64  `yaml:"taste_weight"`
}

// LoadFile merges a yaml catalog file into the catalog. Models register
// first so agent entries can reference them.
func (c *MemoryCatalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading catalog file %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	for _, p := range file.Models {
		if err := c.Register(p); err != nil {
			return fmt.Errorf("catalog file %s: %w", path, err)
		}
	}

	for _, a := range file.Agents {
		primary, ok := c.Get(a.Primary)
		if !ok {
			return domain.NewValidationError("primary", a.Primary, "references unknown model")
		}
		chain := make([]*domain.ModelProfile, 0, len(a.FallbackChain))
		for _, name := range a.FallbackChain {
			p, ok := c.Get(name)
			if !ok {
				return domain.NewValidationError("fallback_chain", name, "references unknown model")
			}
			chain = append(chain, p)
		}
		if err := c.RegisterAgentMapping(&domain.AgentModelMapping{
			AgentID:             a.AgentID,
			Primary:             primary,
			FallbackChain:       chain,
			ConfidenceThreshold: a.ConfidenceThreshold,
			MaxConcurrent:       a.MaxConcurrent,
			TasteWeight:         a.TasteWeight,
		}); err != nil {
			return fmt.Errorf("catalog file %s: %w", path, err)
		}
	}

	return nil
}

// Watch re-merges the catalog file whenever it changes on disk. A reload
// failure keeps the previous registrations and logs the error. The
// returned stop function closes the watcher.
func (c *MemoryCatalog) Watch(path string, log logger.StyledLogger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating catalog watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// the original watch would be lost.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching catalog dir: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := c.LoadFile(path); err != nil {
					log.Error("Catalog reload failed", "path", path, "error", err)
					continue
				}
				log.Info("Catalog reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("Catalog watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
