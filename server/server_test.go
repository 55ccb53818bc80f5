package server

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nixxel-company-limited/escpos/adapter"
	"github.com/nixxel-company-limited/escpos/escpos"
)

// MockAdapter is a mock implementation of the Adapter interface for testing
type MockAdapter struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	writeErr  error
	writeData []byte
}

func (m *MockAdapter) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.open = true
	return nil
}

func (m *MockAdapter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writeData = append(m.writeData, data...)
	return len(data), nil
}

func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MockAdapter) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockAdapter) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.writeData...)
}

var _ adapter.Adapter = (*MockAdapter)(nil)

func newTestServer(t *testing.T, device adapter.Adapter, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(device, "127.0.0.1:0", opts...)
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	addr := s.ListenAddr()
	require.NotNil(t, addr)
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	return conn
}

func TestNewServer(t *testing.T) {
	mockAdapter := &MockAdapter{}
	address := "localhost:9100"

	server := New(mockAdapter, address)

	assert.NotNil(t, server)
	assert.Equal(t, address, server.Address())
	assert.False(t, server.IsRunning())
	assert.Nil(t, server.ListenAddr())
	assert.Equal(t, mockAdapter, server.GetAdapter())
	assert.Equal(t, DefaultIdleTimeout, server.idleTimeout)
}

func TestServerStartStop(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	err := server.StartAsync()
	require.NoError(t, err)
	assert.True(t, server.IsRunning())
	assert.True(t, mockAdapter.IsOpen())

	err = server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	err = server.Stop()
	require.NoError(t, err)
	assert.False(t, server.IsRunning())
	assert.False(t, mockAdapter.IsOpen())

	// Double stop should not error
	assert.NoError(t, server.Stop())
}

func TestServerResetOnStart(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter, WithResetOnStart(true))

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	assert.Equal(t, []byte{escpos.ESC, '@'}, mockAdapter.Data())
}

func TestServerResetFailure(t *testing.T) {
	mockAdapter := &MockAdapter{writeErr: errors.New("paper jam")}
	server := newTestServer(t, mockAdapter, WithResetOnStart(true))

	err := server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reset printer")
	assert.False(t, server.IsRunning())
}

func TestServerAdapterOpenFailure(t *testing.T) {
	mockAdapter := &MockAdapter{openErr: errors.New("no device")}
	server := newTestServer(t, mockAdapter)

	err := server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "open adapter")
	assert.False(t, server.IsRunning())
}

func TestServerConnection(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn := dial(t, server)
	defer conn.Close()

	testData := []byte("Hello, Printer!")
	n, err := conn.Write(testData)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)

	assert.Eventually(t, func() bool {
		return bytes.Equal(testData, mockAdapter.Data())
	}, time.Second, 10*time.Millisecond)
}

func TestServerForwardsEncodedReceipt(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn := dial(t, server)
	enc, err := escpos.New(conn)
	require.NoError(t, err)
	require.NoError(t, enc.TextBold("HI"))
	require.NoError(t, enc.FullCut())
	require.NoError(t, conn.Close())

	want := []byte{0x1B, 0x40, 0x1B, 0x21, 0x08, 0x48, 0x49, 0x1D, 0x56, 0x41, 0x03}
	assert.Eventually(t, func() bool {
		return bytes.Equal(want, mockAdapter.Data())
	}, time.Second, 10*time.Millisecond)
}

func TestServerMultipleConnections(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	numConnections := 3
	for i := 0; i < numConnections; i++ {
		conn := dial(t, server)
		_, err := conn.Write([]byte{byte(i + 1)})
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	assert.Eventually(t, func() bool {
		return len(mockAdapter.Data()) == numConnections
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerJobsDoNotInterleave(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	first := dial(t, server)
	_, err := first.Write([]byte("AAA"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(mockAdapter.Data()) == 3
	}, time.Second, 10*time.Millisecond)

	second := dial(t, server)
	_, err = second.Write([]byte("BBB"))
	require.NoError(t, err)
	require.NoError(t, second.Close())

	_, err = first.Write([]byte("AAA"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	assert.Eventually(t, func() bool {
		return string(mockAdapter.Data()) == "AAAAAABBB"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerIdleTimeout(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter, WithIdleTimeout(100*time.Millisecond))

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	idle := dial(t, server)
	defer idle.Close()

	next := dial(t, server)
	_, err := next.Write([]byte("after idle"))
	require.NoError(t, err)
	require.NoError(t, next.Close())

	assert.Eventually(t, func() bool {
		return string(mockAdapter.Data()) == "after idle"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerAdapterWriteError(t *testing.T) {
	mockAdapter := &MockAdapter{writeErr: errors.New("unplugged")}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn := dial(t, server)
	defer conn.Close()
	_, err := conn.Write([]byte("data"))
	require.NoError(t, err)

	// The server drops the connection after a failed adapter write
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(buf)
	assert.Error(t, err)
}

func TestServerStopClosesOpenConnections(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	require.NoError(t, server.StartAsync())

	conn := dial(t, server)
	defer conn.Close()
	_, err := conn.Write([]byte("x"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(mockAdapter.Data()) == 1
	}, time.Second, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- server.Stop() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked on an open connection")
	}
}

func TestServerAddress(t *testing.T) {
	mockAdapter := &MockAdapter{}
	testCases := []string{
		"localhost:9100",
		"0.0.0.0:9100",
		":9100",
	}

	for _, addr := range testCases {
		t.Run(addr, func(t *testing.T) {
			server := New(mockAdapter, addr)
			assert.Equal(t, addr, server.Address())
		})
	}
}

func TestServerInvalidAddress(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)
	server.address = "invalid:address:9100"

	err := server.StartAsync()
	assert.Error(t, err)
	assert.False(t, server.IsRunning())
	assert.False(t, mockAdapter.IsOpen())
}

func TestServerStartBlocking(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := newTestServer(t, mockAdapter)

	started := make(chan error, 1)
	go func() {
		started <- server.Start()
	}()

	assert.Eventually(t, server.IsRunning, time.Second, 10*time.Millisecond)

	conn := dial(t, server)
	_, err := conn.Write([]byte("Blocking test"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return string(mockAdapter.Data()) == "Blocking test"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
