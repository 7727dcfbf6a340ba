package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	var picked, removed []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		picked = append(picked, path)
		mu.Unlock()
	}
	onRemove := func(path string) {
		mu.Lock()
		removed = append(removed, path)
		mu.Unlock()
	}

	w := NewWatcher(nil, []string{".pdf"}, true, onFile, onRemove)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
	_ = picked
	_ = removed
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	var picked []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		picked = append(picked, path)
		mu.Unlock()
	}
	w := NewWatcher([]string{dir}, []string{".txt"}, true, onFile, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(sub, "cv.txt")
	if err := os.WriteFile(fPath, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	count := len(picked)
	mu.Unlock()
	if count < 1 {
		t.Errorf("expected at least one file callback, got %d", count)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/cv.pdf", []string{".pdf"}, true},
		{"/a/cv.PDF", []string{".pdf"}, true},
		{"/a/cv.docx", []string{".pdf"}, false},
		{"/a/cv", nil, true},
		{"/a/cv", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/cv.pdf", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles_picksUpMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cv.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	var picked []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		picked = append(picked, path)
		mu.Unlock()
	}
	w := NewWatcher([]string{dir}, []string{".txt"}, true, onFile, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.SyncExistingFiles()

	mu.Lock()
	defer mu.Unlock()
	if len(picked) != 1 || !strings.HasSuffix(picked[0], "cv.txt") {
		t.Errorf("expected one picked-up file cv.txt, got %v", picked)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "intake", "drop")
	_ = os.RemoveAll(filepath.Join(base, "intake"))

	w := NewWatcher([]string{root}, []string{".txt"}, true, nil, nil)
	// Use Background so we don't cancel; avoid race with run() reading w.watcher after Stop() nils it.
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_picksUpFilesInNewFolder(t *testing.T) {
	dir := t.TempDir()

	var picked []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		picked = append(picked, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".txt", ".md"}, true, onFile, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// A folder of CVs copied into the intake root at once.
	newFolder := filepath.Join(dir, "batch")
	if err := os.MkdirAll(newFolder, 0755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(newFolder, "cv1.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(newFolder, "cv2.md"), []byte("world"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(newFolder, "ignore.xyz"), []byte("skip"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(picked) < 2 {
		t.Errorf("expected at least 2 picked-up files, got %d: %v", len(picked), picked)
	}

	txtFound, mdFound := false, false
	for _, p := range picked {
		if strings.HasSuffix(p, "cv1.txt") {
			txtFound = true
		}
		if strings.HasSuffix(p, "cv2.md") {
			mdFound = true
		}
		if strings.HasSuffix(p, "ignore.xyz") {
			t.Errorf("ignore.xyz should not be picked up")
		}
	}
	if !txtFound || !mdFound {
		t.Errorf("expected cv1.txt and cv2.md to be picked up, got %v", picked)
	}
}

func TestWatcher_HandleNewDirectory_recursiveSubfolders(t *testing.T) {
	dir := t.TempDir()

	var picked []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		picked = append(picked, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".txt"}, true, onFile, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "deep.txt"), []byte("deep content"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	found := false
	for _, p := range picked {
		if strings.HasSuffix(p, "deep.txt") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected deep.txt to be picked up, got %v", picked)
	}
}
