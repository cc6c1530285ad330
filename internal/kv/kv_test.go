package kv

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v", err)
	}
	in := []byte("abc")
	if err := m.Put(ctx, "k", in); err != nil {
		t.Fatalf("put: %v", err)
	}
	in[0] = 'z'
	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}
	got[1] = 'z'
	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased storage: %s", again)
	}
}

func TestNewRedisFailsFastWhenUnreachable(t *testing.T) {
	if _, err := NewRedis("127.0.0.1:1", "", 0, nil); err == nil {
		t.Fatal("expected ping failure against closed port")
	}
}
