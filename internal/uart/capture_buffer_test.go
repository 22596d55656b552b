package uart

import "testing"

func TestCaptureBuffer_OneSlotShort(t *testing.T) {
	buf := newCaptureBuffer(4)
	if !buf.empty() {
		t.Fatal("new buffer not empty")
	}

	for i := byte(0); i < 3; i++ {
		if !buf.put(i) {
			t.Fatalf("put %d rejected", i)
		}
	}
	if !buf.full() {
		t.Fatal("buffer with size-1 bytes not full")
	}
	if buf.put(9) {
		t.Fatal("put into a full buffer accepted")
	}
	if got := buf.len(); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}

	for want := byte(0); want < 3; want++ {
		got, ok := buf.get()
		if !ok || got != want {
			t.Fatalf("get = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := buf.get(); ok {
		t.Error("get from an empty buffer succeeded")
	}
}

func TestCaptureBuffer_Wrap(t *testing.T) {
	buf := newCaptureBuffer(4)
	var next, want byte
	for round := 0; round < 10; round++ {
		for buf.put(next) {
			next++
		}
		for !buf.empty() {
			got, _ := buf.get()
			if got != want {
				t.Fatalf("round %d: got %d, want %d", round, got, want)
			}
			want++
		}
	}
}

func TestCaptureBuffer_Reset(t *testing.T) {
	buf := newCaptureBuffer(8)
	buf.put(1)
	buf.put(2)
	buf.reset()
	if !buf.empty() || buf.len() != 0 {
		t.Error("buffer not empty after reset")
	}
}
