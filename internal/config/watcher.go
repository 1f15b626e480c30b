package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches config.json for changes and hot-reloads it, following
// cmd/vision3/config_watcher.go's debounced fsnotify pattern.
type Watcher struct {
	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	done       chan struct{}
	configPath string

	target   *ServerConfig
	targetMu *sync.RWMutex
}

// NewWatcher starts watching configPath for changes to config.json,
// updating *target (guarded by targetMu) whenever the file is rewritten.
func NewWatcher(configPath string, target *ServerConfig, targetMu *sync.RWMutex) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(configPath); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", configPath, err)
	}

	cw := &Watcher{
		watcher:    w,
		done:       make(chan struct{}),
		configPath: configPath,
		target:     target,
		targetMu:   targetMu,
	}
	log.Printf("INFO: Watching %s for config.json changes (auto-reload enabled)", configPath)
	go cw.loop()
	return cw, nil
}

// Stop shuts the watcher down.
func (cw *Watcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.watcher == nil {
		return
	}
	select {
	case <-cw.done:
	default:
		close(cw.done)
	}
	cw.watcher.Close()
	cw.watcher = nil
	log.Printf("INFO: Configuration file watcher stopped")
}

func (cw *Watcher) loop() {
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != "config.json" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, cw.reload)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: Config file watcher error: %v", err)

		case <-cw.done:
			return
		}
	}
}

func (cw *Watcher) reload() {
	log.Printf("INFO: Reloading config.json...")
	newCfg, err := LoadServerConfig(cw.configPath)
	if err != nil {
		log.Printf("ERROR: Failed to reload config.json: %v", err)
		return
	}

	cw.targetMu.Lock()
	oldPort, oldHost := cw.target.Port, cw.target.Host
	*cw.target = newCfg
	cw.targetMu.Unlock()

	log.Printf("INFO: config.json reloaded successfully")
	if newCfg.Port != oldPort || newCfg.Host != oldHost {
		log.Printf("WARN: listen address change (%s:%d -> %s:%d) requires a full restart", oldHost, oldPort, newCfg.Host, newCfg.Port)
	}
}
