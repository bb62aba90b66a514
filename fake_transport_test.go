package crazyflie

import (
	"os"
	"path/filepath"
	"sync"
)

func writeFileForTest(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// fakeTransport is an in-memory Transport used across this package's
// tests: writes are captured, and inject lets a test hand the
// dispatcher a packet as if the vehicle had sent it.
type fakeTransport struct {
	mu      sync.Mutex
	written [][]byte
	inbox   [][]byte
	closed  bool
}

func newFakeTransport() *fakeTransport { return &fakeTransport{} }

func (f *fakeTransport) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), buf...)
	f.written = append(f.written, cp)
	return len(buf), nil
}

func (f *fakeTransport) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		return 0, nil
	}
	next := f.inbox[0]
	f.inbox = f.inbox[1:]
	n := copy(buf, next)
	return n, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) inject(pk Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, pk.Bytes())
}

func (f *fakeTransport) lastWritten() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		return nil
	}
	return f.written[len(f.written)-1]
}

func (f *fakeTransport) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}
