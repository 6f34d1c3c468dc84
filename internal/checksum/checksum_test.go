package checksum

import "testing"

func TestSum_Known(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestFast_StableAndDistinct(t *testing.T) {
	a := Fast([]byte("hello"))
	if a != Fast([]byte("hello")) {
		t.Error("Fast is not deterministic")
	}
	if a == Fast([]byte("hello!")) {
		t.Error("Fast collided on different input")
	}
}
