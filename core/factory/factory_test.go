package factory

import (
	"errors"
	"testing"
)

type window struct{ Hours float64 }

type windowConf struct {
	Hours float64 `json:"hours"`
}

func newWindow(conf map[string]any) (*window, error) {
	var c windowConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &window{Hours: c.Hours}, nil
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry[*window]()
	if err := reg.Register("rest", newWindow); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "rest", Conf: map[string]any{"hours": "11.5"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Hours != 11.5 {
		t.Fatalf("expected 11.5 got %v", inst.Hours)
	}
	if !reg.Has("rest") || reg.Has("other") {
		t.Fatal("unexpected Has result")
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "z"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"b", "c", "a"} {
		reg.MustRegister(n, func(map[string]any) (int, error) { return 0, nil })
	}
	got := reg.Names()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("names=%v", got)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	var c windowConf
	if err := Decode(map[string]any{"hours": 1, "minutes": 2}, &c); err == nil {
		t.Fatal("expected error for unused key")
	}
}
