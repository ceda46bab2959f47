package vault

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/boltdb/bolt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
)

func tempBolt(t *testing.T) (*Bolt, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handles.db")
	v, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v, path
}

func grant(t *testing.T) *capability.Dir {
	t.Helper()
	d, err := capability.Grant(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Revoke() })
	return d
}

func TestBoltEmptyFetch(t *testing.T) {
	v, _ := tempBolt(t)
	d, err := v.Fetch(context.Background())
	if err != nil || d != nil {
		t.Errorf("Fetch = %v, %v; want nil, nil", d, err)
	}
}

func TestBoltStoreFetchClear(t *testing.T) {
	ctx := context.Background()
	v, _ := tempBolt(t)
	orig := grant(t)

	if err := v.Store(ctx, orig); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := v.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil {
		t.Fatal("expected a capability")
	}
	if got == orig {
		t.Error("bolt vault must reacquire, not hand out the owner's pointer")
	}
	if got.ID() != orig.ID() || got.Path() != orig.Path() {
		t.Errorf("fetched %+v, want %+v", got.Ref(), orig.Ref())
	}
	if err := capability.Probe(got); err != nil {
		t.Errorf("reacquired capability should probe: %v", err)
	}
	_ = got.Revoke()

	if err := v.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := v.Fetch(ctx); got != nil {
		t.Error("expected nil after Clear")
	}
}

func TestBoltSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "handles.db")
	v, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	orig := grant(t)
	if err := v.Store(ctx, orig); err != nil {
		t.Fatal(err)
	}
	_ = v.Close()

	v2, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer v2.Close()
	got, err := v2.Fetch(ctx)
	if err != nil || got == nil {
		t.Fatalf("Fetch after reopen = %v, %v", got, err)
	}
	if got.ID() != orig.ID() {
		t.Errorf("id = %q, want %q", got.ID(), orig.ID())
	}
}

func TestBoltCorruptEntry(t *testing.T) {
	v, _ := tempBolt(t)
	err := v.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(handlesBucket).Put(handleKey, []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = v.Fetch(context.Background())
	var ve *apperr.VaultError
	if !errors.As(err, &ve) {
		t.Fatalf("expected VaultError, got %v", err)
	}
}

func TestSessionStoreFetchClear(t *testing.T) {
	ctx := context.Background()
	v := NewSession()
	d := grant(t)

	if got, _ := v.Fetch(ctx); got != nil {
		t.Fatal("empty session vault should return nil")
	}
	_ = v.Store(ctx, d)
	got, err := v.Fetch(ctx)
	if err != nil || got != d {
		t.Fatalf("Fetch = %v, %v", got, err)
	}
	_ = v.Clear(ctx)
	if got, _ := v.Fetch(ctx); got != nil {
		t.Error("expected nil after Clear")
	}
}

func TestSessionForgetsRevoked(t *testing.T) {
	ctx := context.Background()
	v := NewSession()
	d := grant(t)
	_ = v.Store(ctx, d)
	_ = d.Revoke()
	if got, _ := v.Fetch(ctx); got != nil {
		t.Error("revoked capability must not be returned")
	}
}

//go:noinline
func storeUnowned(t *testing.T, v *Session) {
	d, err := capability.Reacquire(capability.Ref{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	_ = v.Store(context.Background(), d)
}

func TestSessionDoesNotOwnCapability(t *testing.T) {
	v := NewSession()
	storeUnowned(t, v)
	for i := 0; i < 10; i++ {
		runtime.GC()
		if got, _ := v.Fetch(context.Background()); got == nil {
			return
		}
	}
	t.Error("session vault kept an unowned capability alive")
}
