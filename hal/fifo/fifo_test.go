package fifo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

const waitFor = 5 * time.Second

func startPair(t *testing.T) (*USB, *Host) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	dev := New(t.TempDir())
	require.NoError(t, dev.Init(ctx))
	t.Cleanup(func() { dev.Stop() })
	require.NoError(t, dev.Start())

	host, err := Dial(ctx, dev.busDir)
	require.NoError(t, err)
	t.Cleanup(func() { host.Close() })
	assert.Equal(t, dev.DeviceDir(), host.Dir())
	return dev, host
}

func configure(t *testing.T, dev *USB, host *Host) {
	t.Helper()
	require.NoError(t, host.Configure())
	require.Eventually(t, func() bool {
		return dev.LinkState() == hal.LinkConfigured
	}, waitFor, time.Millisecond)
}

func TestInitTwice(t *testing.T) {
	dev := New(t.TempDir())
	require.NoError(t, dev.Init(context.Background()))
	defer dev.Stop()
	require.ErrorIs(t, dev.Init(context.Background()), pkg.ErrAlreadyRunning)
	assert.Len(t, dev.UUID(), 32)
}

func TestStartBeforeInit(t *testing.T) {
	dev := New(t.TempDir())
	require.ErrorIs(t, dev.Start(), pkg.ErrNotConfigured)
	require.ErrorIs(t, dev.Stop(), pkg.ErrNotRunning)
}

func TestLinkEvents(t *testing.T) {
	dev, host := startPair(t)
	assert.Equal(t, hal.LinkUnconfigured, dev.LinkState())

	configure(t, dev, host)

	require.NoError(t, host.Suspend())
	require.Eventually(t, func() bool {
		return dev.LinkState() == hal.LinkSuspended
	}, waitFor, time.Millisecond)

	require.NoError(t, host.Resume())
	require.Eventually(t, func() bool {
		return dev.LinkState() == hal.LinkConfigured
	}, waitFor, time.Millisecond)
}

func TestOutTransfer(t *testing.T) {
	dev, host := startPair(t)
	configure(t, dev, host)

	var a, b hal.Transfer
	require.NoError(t, dev.ArmOut(&a))
	require.NoError(t, dev.ArmOut(&b))
	require.ErrorIs(t, dev.ArmOut(&a), pkg.ErrBusy)

	want := []midi.Packet{
		{0x09, 0x90, 0x40, 0x7F},
		{0x08, 0x80, 0x40, 0x00},
	}
	require.NoError(t, host.WritePackets(want...))

	require.Eventually(t, func() bool {
		dev.Service()
		return !a.Busy()
	}, waitFor, time.Millisecond)

	assert.Equal(t, 8, a.Len())
	assert.Equal(t, []byte{0x09, 0x90, 0x40, 0x7F, 0x08, 0x80, 0x40, 0x00}, a.Bytes())
	assert.True(t, b.Busy())
}

func TestWritePacketsSplitsTransfers(t *testing.T) {
	dev, host := startPair(t)

	var rx [2]hal.Transfer
	require.NoError(t, dev.ArmOut(&rx[0]))
	require.NoError(t, dev.ArmOut(&rx[1]))

	packets := make([]midi.Packet, 20)
	for i := range packets {
		packets[i] = midi.Packet{0x0F, 0xF8, 0, 0}
	}
	require.NoError(t, host.WritePackets(packets...))

	require.Eventually(t, func() bool {
		dev.Service()
		return !rx[0].Busy() && !rx[1].Busy()
	}, waitFor, time.Millisecond)
	assert.Equal(t, hal.MaxPacketSize, rx[0].Len())
	assert.Equal(t, 4*midi.PacketSize, rx[1].Len())
}

func TestInTransfer(t *testing.T) {
	dev, host := startPair(t)
	configure(t, dev, host)

	var tr hal.Transfer
	p := midi.Packet{0x0B, 0xB0, 0x07, 0x64}
	tr.SetLen(p.MarshalTo(tr.Data[:]))
	require.NoError(t, dev.SubmitIn(&tr))
	require.ErrorIs(t, dev.SubmitIn(&tr), pkg.ErrBusy)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	got, err := host.ReadPackets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []midi.Packet{p}, got)

	require.Eventually(t, func() bool {
		dev.Service()
		return !tr.Busy()
	}, waitFor, time.Millisecond)
}

func TestBusReset(t *testing.T) {
	dev, host := startPair(t)
	configure(t, dev, host)

	var tr hal.Transfer
	require.NoError(t, dev.ArmOut(&tr))
	require.NoError(t, host.Reset())

	require.Eventually(t, func() bool {
		dev.Service()
		return dev.LinkState() == hal.LinkUnconfigured
	}, waitFor, time.Millisecond)
	assert.False(t, tr.Busy())
	assert.Zero(t, tr.Len())
}

func TestStopRemovesDeviceDir(t *testing.T) {
	dev := New(t.TempDir())
	require.NoError(t, dev.Init(context.Background()))
	dir := dev.DeviceDir()
	_, err := os.Stat(dir)
	require.NoError(t, err)

	var tr hal.Transfer
	require.NoError(t, dev.ArmOut(&tr))

	require.NoError(t, dev.Stop())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, tr.Busy())
}

func TestDialTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*pollInterval)
	defer cancel()
	_, err := Dial(ctx, t.TempDir())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWriteTransferTooLarge(t *testing.T) {
	_, host := startPair(t)
	require.ErrorIs(t, host.WriteTransfer(make([]byte, hal.MaxPacketSize+1)), pkg.ErrBufferTooSmall)
}
