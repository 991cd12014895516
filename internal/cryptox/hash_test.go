package cryptox

import (
	"testing"
)

func TestSHA256Hasher_KnownVector(t *testing.T) {
	h := SHA256Hasher{}

	got := h.Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("sha256(abc) = %s, want %s", got, want)
	}
}

func TestHashers_DeterministicAndDistinct(t *testing.T) {
	for _, h := range []Hasher{SHA256Hasher{}, Blake3Hasher{}} {
		a := h.Sum([]byte("payload"))
		b := h.Sum([]byte("payload"))
		if a != b {
			t.Fatalf("%s: same input produced different digests", h.Name())
		}
		if h.Sum([]byte("payload")) == h.Sum([]byte("payload2")) {
			t.Fatalf("%s: distinct inputs collided", h.Name())
		}
		if len(a) != 64 {
			t.Fatalf("%s: expected 64 hex chars, got %d", h.Name(), len(a))
		}
	}
}

func TestHasherByName(t *testing.T) {
	if HasherByName("blake3").Name() != "blake3" {
		t.Fatal("expected blake3 strategy")
	}
	if HasherByName("sha256").Name() != "sha256" {
		t.Fatal("expected sha256 strategy")
	}
	if HasherByName("poseidon").Name() != "sha256" {
		t.Fatal("unknown strategy must fall back to sha256")
	}
}
