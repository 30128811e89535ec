package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

type fakePort struct {
	chunks   [][]byte
	written  []byte
	maxWrite int
	timeouts []time.Duration
	readErr  error
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	p.chunks[0] = p.chunks[0][n:]
	if len(p.chunks[0]) == 0 {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	n := len(b)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}
	p.written = append(p.written, b[:n]...)
	return n, nil
}

func (p *fakePort) Close() error { p.closed = true; return nil }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *fakePort) ResetInputBuffer() error { return nil }

func TestSerialTransportWriteCompletesPartialWrites(t *testing.T) {
	port := &fakePort{maxWrite: 2}
	tr := &serialTransport{port: port, path: "/dev/ttyUSB0"}

	require.NoError(t, tr.Write([]byte{0x87, 0x02, 0x8C, 0x1B, 0xD0}))
	assert.Equal(t, []byte{0x87, 0x02, 0x8C, 0x1B, 0xD0}, port.written)
}

func TestSerialTransportReadAssemblesChunks(t *testing.T) {
	port := &fakePort{chunks: [][]byte{{0xA5, 0x45}, {0xF0, 0, 0, 0, 0, 0x26}}}
	tr := &serialTransport{port: port}

	data, err := tr.Read(8, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5, 0x45, 0xF0, 0, 0, 0, 0, 0x26}, data)
	require.NotEmpty(t, port.timeouts)
	assert.LessOrEqual(t, port.timeouts[0], 50*time.Millisecond)
}

func TestSerialTransportReadTimeoutIsShortRead(t *testing.T) {
	port := &fakePort{chunks: [][]byte{{0xB4, 0xC5}}}
	tr := &serialTransport{port: port}

	data, err := tr.Read(8, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xB4, 0xC5}, data)
}

func TestSerialTransportReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	tr := &serialTransport{port: &fakePort{readErr: boom}}

	_, err := tr.Read(8, 10*time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	orig := portLister
	portLister = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { portLister = orig })
}

func TestFindSerialPort(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10C4", PID: "EA60"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001"},
	}, nil)

	cfg := defaultConfig()
	path, err := findSerialPort(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", path)

	cfg.USBVendorID = null.StringFrom("0403")
	path, err = findSerialPort(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", path)

	cfg.USBProductID = null.StringFrom("ffff")
	_, err = findSerialPort(cfg)
	assert.Error(t, err)
}

func TestFindSerialPortEnumerationError(t *testing.T) {
	withPorts(t, nil, errors.New("no sysfs"))
	_, err := findSerialPort(defaultConfig())
	assert.ErrorContains(t, err, "no sysfs")
}

func TestDescribePortErrorPlainError(t *testing.T) {
	assert.Equal(t, "io", describePortError(errors.New("eof")))
}
