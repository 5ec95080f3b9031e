// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// writeFiles writes files, by slash separated name, in dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, src := range files {
		file := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
		require.NoError(t, os.WriteFile(file, []byte(src), 0o644))
	}
}

func TestNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"item10.block":        "",
		"item2.block":         "",
		"blocks/nav.block":    "",
		"notes.txt":           "",
		".hidden.block":       "",
		".git/config.block":   "",
		"blocks/footer.block": "",
	})
	l := New(dir, &Options{Extensions: []string{".block"}})
	names, err := l.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"blocks/footer.block", "blocks/nav.block", "item2.block", "item10.block"}, names)

	names, err = New(dir, nil).Names()
	require.NoError(t, err)
	assert.Contains(t, names, "notes.txt")
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.block":   "<{name}>",
		"bad.block": "{.section a}",
	})
	l := New(dir, &Options{Extensions: []string{".block"}})

	root, errs, err := l.Get("a.block")
	require.NoError(t, err)
	assert.Empty(t, errs)
	data, err := ast.Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, `[17,1,[[0,"<"],[1,[["name"]],0],[0,">"]],18]`, string(data))

	again, _, err := l.Get("a.block")
	require.NoError(t, err)
	assert.Same(t, root, again)

	_, errs, err = l.Get("bad.block")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, ast.ErrEOFInBlock, errs[0].Type)

	for _, name := range []string{"missing.block", "../a.block", "a.txt"} {
		_, _, err = l.Get(name)
		assert.ErrorIs(t, err, ErrNotExist, "Get(%q)", name)
	}
}

func TestPartials(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.block":   "a",
		"bad.block": "{.section a}",
	})
	partials, err := New(dir, nil).Partials()
	require.NoError(t, err)
	require.Len(t, partials, 2)
	assert.IsType(t, &ast.Root{}, partials["a.block"])
	assert.Equal(t, "{.section a}", partials["bad.block"])
}

func TestCacheSize(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a": "a", "b": "b"})
	l := New(dir, &Options{CacheSize: 1})
	a, _, err := l.Get("a")
	require.NoError(t, err)
	_, _, err = l.Get("b")
	require.NoError(t, err)
	again, _, err := l.Get("a")
	require.NoError(t, err)
	assert.NotSame(t, a, again)
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"blocks/a.block": "x"})
	l := New(dir, nil)
	root, _, err := l.Get("blocks/a.block")
	require.NoError(t, err)
	writeFiles(t, dir, map[string]string{"blocks/a.block": "y"})
	l.invalidate(filepath.Join(dir, "blocks", "a.block"))
	again, _, err := l.Get("blocks/a.block")
	require.NoError(t, err)
	assert.NotSame(t, root, again)
	assert.Equal(t, &ast.Text{Text: "y"}, again.Consequents[0])
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.block": "x"})
	l := New(dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Watch(ctx))
	assert.Error(t, l.Watch(ctx))

	root, _, err := l.Get("a.block")
	require.NoError(t, err)
	assert.Equal(t, &ast.Text{Text: "x"}, root.Consequents[0])

	writeFiles(t, dir, map[string]string{"a.block": "y"})
	require.Eventually(t, func() bool {
		root, _, err := l.Get("a.block")
		return err == nil && len(root.Consequents) == 1 &&
			root.Consequents[0].(*ast.Text).Text == "y"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
