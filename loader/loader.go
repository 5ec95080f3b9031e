// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader loads partials from the files of a directory.
//
// The name of a partial is the slash separated path of its file relative
// to the directory, for example "blocks/item.block". Compiled partials are
// kept in a cache that Watch keeps in sync with the files.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/natural"
	"github.com/rs/zerolog"
	"github.com/tidwall/tinylru"

	"github.com/Squarespace/template-engine-sub000/ast"
	"github.com/Squarespace/template-engine-sub000/internal/compiler"
)

// DefaultCacheSize is the default number of compiled partials kept in the
// cache.
const DefaultCacheSize = 256

// ErrNotExist is returned by Get if the partial does not exist.
var ErrNotExist = errors.New("partial does not exist")

// Options are the options of a Loader.
type Options struct {

	// Extensions are the file extensions of the partials, for example
	// ".block". If empty, every file is a partial.
	Extensions []string

	// CacheSize is the maximum number of compiled partials kept in the
	// cache. If zero, it is DefaultCacheSize.
	CacheSize int

	// Logger receives reloads and watch errors. If nil, nothing is logged.
	Logger *zerolog.Logger
}

// Loader loads partials from a directory. A Loader can be used
// concurrently.
type Loader struct {
	dir        string
	fsys       fs.FS
	extensions []string
	logger     zerolog.Logger
	cache      tinylru.LRU // compiled partials by name

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// partial is a compiled partial.
type partial struct {
	src    string
	root   *ast.Root
	errors []*ast.Error
}

// New returns a loader that loads the partials in dir. opts can be nil.
func New(dir string, opts *Options) *Loader {
	l := &Loader{
		dir:    dir,
		fsys:   os.DirFS(dir),
		logger: zerolog.Nop(),
	}
	size := DefaultCacheSize
	if opts != nil {
		l.extensions = opts.Extensions
		if opts.CacheSize > 0 {
			size = opts.CacheSize
		}
		if opts.Logger != nil {
			l.logger = *opts.Logger
		}
	}
	l.cache.Resize(size)
	return l
}

// isPartial reports whether name has one of the partial extensions.
func (l *Loader) isPartial(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	ext := path.Ext(name)
	for _, e := range l.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Names returns the names of the partials in natural order, so that
// "item2" comes before "item10". Hidden files and directories are skipped.
func (l *Loader) Names() ([]string, error) {
	var names []string
	err := fs.WalkDir(l.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && l.isPartial(name) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })
	return names, nil
}

// Get returns the compiled partial with the given name and its compilation
// errors. If the partial does not exist, it returns ErrNotExist.
func (l *Loader) Get(name string) (*ast.Root, []*ast.Error, error) {
	p, err := l.get(name)
	if err != nil {
		return nil, nil, err
	}
	return p.root, p.errors, nil
}

func (l *Loader) get(name string) (*partial, error) {
	if v, ok := l.cache.Get(name); ok {
		return v.(*partial), nil
	}
	if !fs.ValidPath(name) || !l.isPartial(name) {
		return nil, ErrNotExist
	}
	src, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	p := &partial{src: string(src)}
	p.root, p.errors = compiler.Parse(p.src)
	l.cache.Set(name, p)
	l.logger.Debug().Str("partial", name).Int("errors", len(p.errors)).Msg("loaded partial")
	return p, nil
}

// Partials returns all the partials, by name, to be used as the partials of
// a render. Partials with compilation errors are returned as source, so
// that the render reports their errors when they are included.
func (l *Loader) Partials() (map[string]any, error) {
	names, err := l.Names()
	if err != nil {
		return nil, err
	}
	partials := make(map[string]any, len(names))
	for _, name := range names {
		p, err := l.get(name)
		if err != nil {
			return nil, err
		}
		if len(p.errors) > 0 {
			partials[name] = p.src
		} else {
			partials[name] = p.root
		}
	}
	return partials, nil
}

// Watch watches the directory and its sub-directories, removing from the
// cache the partials whose files change. It returns after the watch has
// started; the watch stops when ctx is done or the loader is closed.
func (l *Loader) Watch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return errors.New("loader: already watching")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = filepath.WalkDir(l.dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(name)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return err
	}
	l.watcher = watcher
	go l.watch(ctx, watcher)
	return nil
}

func (l *Loader) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = l.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						l.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch directory")
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				l.invalidate(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// invalidate removes from the cache the partial of the file with path
// file.
func (l *Loader) invalidate(file string) {
	rel, err := filepath.Rel(l.dir, file)
	if err != nil {
		return
	}
	name := filepath.ToSlash(rel)
	if _, deleted := l.cache.Delete(name); deleted {
		l.logger.Debug().Str("partial", name).Msg("partial changed")
	}
}

// Close stops watching the directory.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	l.watcher = nil
	return err
}
