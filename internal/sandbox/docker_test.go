package sandbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestDrainWithContext_ReadsToEOF(t *testing.T) {
	data := strings.Repeat("output line\n", 1000)

	got, err := drainWithContext(context.Background(), strings.NewReader(data), func() {
		t.Error("abort called on a clean read")
	})
	if err != nil {
		t.Fatalf("drainWithContext() error = %v", err)
	}
	if string(got) != data {
		t.Errorf("read %d bytes; want %d", len(got), len(data))
	}
}

// A stream that never delivers data must not outlive the context: the read
// is abandoned at the deadline so the executor's recycle path can run.
func TestDrainWithContext_AbandonsBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := drainWithContext(ctx, pr, func() { pr.Close() })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("drainWithContext() error = %v; want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("blocked read held for %v after the deadline", elapsed)
	}
}

func TestDemuxOutput(t *testing.T) {
	frame := func(stream byte, payload string) []byte {
		n := len(payload)
		header := []byte{stream, 0, 0, 0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
		return append(header, payload...)
	}

	var data []byte
	data = append(data, frame(1, "hello\n")...)
	data = append(data, frame(2, "Traceback\n")...)
	data = append(data, frame(1, "world\n")...)

	stdout, stderr := demuxOutput(data)
	if stdout != "hello\nworld\n" {
		t.Errorf("stdout = %q; want interleaved frames joined", stdout)
	}
	if stderr != "Traceback\n" {
		t.Errorf("stderr = %q; want the stderr frame", stderr)
	}
}

func TestDemuxOutput_RawStream(t *testing.T) {
	stdout, stderr := demuxOutput([]byte("ok"))
	if stdout != "ok" || stderr != "" {
		t.Errorf("got stdout=%q stderr=%q; want raw bytes as stdout", stdout, stderr)
	}
}
