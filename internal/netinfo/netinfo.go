// Package netinfo reads the network state written by pi-helper and keeps it
// current as the file changes.
package netinfo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// DefaultPath is where pi-helper writes its env file.
const DefaultPath = "/run/pi-helper.env"

// pi-helper variable names.
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// Info is the host's network state.
type Info struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// FromMap builds Info from pi-helper variables. It returns nil when no
// network status is present.
func FromMap(vars map[string]string) *Info {
	if vars[envNetworkStatus] == "" {
		return nil
	}
	return &Info{
		Type:       vars[envNetworkType],
		IP:         vars[envNetworkIP],
		Status:     vars[envNetworkStatus],
		Gateway:    vars[envNetworkGateway],
		WifiStatus: vars[envNetworkWifiStatus],
		SSID:       vars[envNetworkWifiSSID],
	}
}

// FromEnv reads the variables from the process environment, for units that
// load the file with systemd EnvironmentFile=.
func FromEnv() *Info {
	vars := make(map[string]string)
	for _, k := range []string{envNetworkType, envNetworkIP, envNetworkStatus, envNetworkGateway, envNetworkWifiStatus, envNetworkWifiSSID} {
		vars[k] = os.Getenv(k)
	}
	return FromMap(vars)
}

// Read parses the env file at path.
func Read(path string) (*Info, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read network env %s: %w", path, err)
	}
	return FromMap(vars), nil
}

// Load returns the network state from path, falling back to the process
// environment when the file cannot be read.
func Load(path string) *Info {
	if path != "" {
		if info, err := Read(path); err == nil {
			return info
		}
	}
	return FromEnv()
}

const debounce = 250 * time.Millisecond

// Watcher calls a function with fresh Info whenever the env file changes.
type Watcher struct {
	path     string
	onChange func(*Info)
	fw       *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching path. The directory is watched rather than the file
// because pi-helper replaces the file on every write.
func Watch(ctx context.Context, path string, onChange func(*Info)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{path: abs, onChange: onChange, fw: fw, done: make(chan struct{})}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("netinfo: watch error: %v", err)
		}
	}
}

// schedule coalesces bursts of events into a single reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.reload)
}

func (w *Watcher) reload() {
	info, err := Read(w.path)
	if err != nil {
		// Removed or half-written: report unknown until the next write.
		info = nil
	}
	w.onChange(info)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.fw.Close()
	<-w.done
	return err
}
