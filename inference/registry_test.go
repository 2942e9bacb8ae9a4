package inference

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func TestRegistry_Get_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestModel(t, dir, KindSuperResolution, 2, 3, 0)
	r := NewRegistry()
	ctx := context.Background()

	first, err := r.Get(ctx, KindSuperResolution, path)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	second, err := r.Get(ctx, KindSuperResolution, path)
	if err != nil {
		t.Fatalf("Get() error on second call: %v", err)
	}

	if first != second {
		t.Errorf("Get() returned distinct instances %p and %p, want the same", first, second)
	}
	if n := r.LoadedCount(); n != 1 {
		t.Errorf("LoadedCount() = %d, want 1", n)
	}
}

func TestRegistry_Get_ConcurrentFirstUse(t *testing.T) {
	dir := t.TempDir()
	path := writeTestModel(t, dir, KindSuperResolution, 2, 3, 0)
	r := NewRegistry()

	const goroutines = 20
	models := make([]*Model, goroutines)
	errs := make([]error, goroutines)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			models[i], errs[i] = r.Get(context.Background(), KindSuperResolution, path)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: Get() error: %v", i, errs[i])
		}
		if models[i] != models[0] {
			t.Fatalf("goroutine %d: got instance %p, want %p", i, models[i], models[0])
		}
	}
	if n := r.LoadedCount(); n != 1 {
		t.Errorf("LoadedCount() = %d, want 1", n)
	}
}

func TestRegistry_Get_DistinctKeys(t *testing.T) {
	dir := t.TempDir()
	srPath := writeTestModel(t, dir, KindSuperResolution, 2, 3, 0)
	segPath := writeTestModel(t, dir, KindSegmentation, 0, 0, 0)
	r := NewRegistry()
	ctx := context.Background()

	sr, err := r.Get(ctx, KindSuperResolution, srPath)
	if err != nil {
		t.Fatalf("Get(super_resolution) error: %v", err)
	}
	seg, err := r.Get(ctx, KindSegmentation, segPath)
	if err != nil {
		t.Fatalf("Get(segmentation) error: %v", err)
	}

	if sr == seg {
		t.Error("distinct keys returned the same instance")
	}
	if n := r.LoadedCount(); n != 2 {
		t.Errorf("LoadedCount() = %d, want 2", n)
	}
}

func TestRegistry_Get_FailureNotCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.pfw")
	r := NewRegistry()
	ctx := context.Background()

	// Every attempt against the missing file fails fresh
	for i := 0; i < 2; i++ {
		_, err := r.Get(ctx, KindSuperResolution, path)
		if !errors.Is(err, ErrModelNotFound) {
			t.Fatalf("attempt %d: Get() error = %v, want ErrModelNotFound", i+1, err)
		}
	}
	if n := r.LoadedCount(); n != 0 {
		t.Fatalf("LoadedCount() after failures = %d, want 0", n)
	}

	// Drop the file in place and the same registry heals without restart
	h := Header{Kind: KindSuperResolution, Scale: 2, Channels: 3, Kernel: 3}
	if err := WriteModelFile(path, h, DefaultWeights(KindSuperResolution, 3)); err != nil {
		t.Fatalf("WriteModelFile() error: %v", err)
	}

	model, err := r.Get(ctx, KindSuperResolution, path)
	if err != nil {
		t.Fatalf("Get() after fix error: %v", err)
	}
	if model.Scale() != 2 {
		t.Errorf("Scale() = %d, want 2", model.Scale())
	}
	if n := r.LoadedCount(); n != 1 {
		t.Errorf("LoadedCount() = %d, want 1", n)
	}
}

func TestRegistry_Get_KindMismatchNotCached(t *testing.T) {
	dir := t.TempDir()
	path := writeTestModel(t, dir, KindSuperResolution, 2, 3, 0)
	r := NewRegistry()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Get(ctx, KindSegmentation, path)
		if !errors.Is(err, ErrKindMismatch) {
			t.Fatalf("attempt %d: Get() error = %v, want ErrKindMismatch", i+1, err)
		}
	}

	// The same file still loads under its true kind
	if _, err := r.Get(ctx, KindSuperResolution, path); err != nil {
		t.Fatalf("Get() with matching kind error: %v", err)
	}
	if n := r.LoadedCount(); n != 1 {
		t.Errorf("LoadedCount() = %d, want 1", n)
	}
}

func TestRegistry_Get_CanceledWhileWaiting(t *testing.T) {
	r := NewRegistry()
	key := registryKey{kind: KindSuperResolution, path: "never-finishes.pfw"}

	// Simulate another goroutine mid-load so this caller has to wait.
	fl := &inflightLoad{done: make(chan struct{})}
	r.mu.Lock()
	r.inflight[key] = fl
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Get(ctx, KindSuperResolution, "never-finishes.pfw")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
