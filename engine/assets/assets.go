package assets

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/fsnotify/fsnotify"
)

// Type classifies a usable decal asset.
type Type int

const (
	TypeNone Type = iota
	// TypeImage is a raster file usable as an image decal.
	TypeImage
	// TypeIcon is an SVG file whose path data becomes a vector icon decal.
	TypeIcon
	// TypeFont is a BMFont descriptor for text rasterization.
	TypeFont
)

// Info is one indexed asset.
type Info struct {
	Path       string
	Type       Type
	LastLoaded time.Time
}

// Limits bound user-supplied assets before they enter the document.
type Limits struct {
	// MaxBytes is the largest accepted file size.
	MaxBytes int64
	// MaxPixels is the largest accepted raster dimension on either axis.
	MaxPixels int
}

// DefaultLimits are applied when the config supplies none.
var DefaultLimits = Limits{MaxBytes: 4 << 20, MaxPixels: 2048}

// Manager indexes the asset directory and keeps the index live through a
// recursive fsnotify watch, so icons and images dropped in while the app
// runs become available without a restart.
type Manager struct {
	assets map[string]Info
	images map[string]image.Image
	limits Limits

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewManager(limits Limits) (*Manager, error) {
	if limits.MaxBytes == 0 {
		limits.MaxBytes = DefaultLimits.MaxBytes
	}
	if limits.MaxPixels == 0 {
		limits.MaxPixels = DefaultLimits.MaxPixels
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Manager{
		assets:   make(map[string]Info),
		images:   make(map[string]image.Image),
		limits:   limits,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes assetsDir and starts watching it recursively.
func (am *Manager) Initialize(assetsDir string) error {
	go am.start()
	return am.watchRecursive(assetsDir, false)
}

// Close stops the watcher and releases the decoded image cache.
func (am *Manager) Close() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

// Assets returns a snapshot of the current index.
func (am *Manager) Assets() []Info {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]Info, 0, len(am.assets))
	for _, info := range am.assets {
		out = append(out, info)
	}
	return out
}

func (am *Manager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			if e != nil {
				core.LogError("asset watcher: %v", e)
			}

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds (or removes) all directories under path to the
// watch list and indexes the files found on the way.
func (am *Manager) watchRecursive(path string, unWatch bool) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *Manager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == TypeNone {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = Info{Path: path, Type: assetType, LastLoaded: time.Now()}
	// A rewritten file invalidates its decoded cache entry.
	delete(am.images, path)
}

func (am *Manager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
	delete(am.images, path)
}

func determineAssetType(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return TypeImage
	case ".svg":
		return TypeIcon
	case ".fnt":
		return TypeFont
	default:
		return TypeNone
	}
}
