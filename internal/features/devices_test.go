package features

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kenshaw/evdev"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	name   string
	abs    []evdev.AbsoluteType
	closed *int
}

func (n fakeNode) Name() string { return n.name }

func (n fakeNode) AbsoluteTypes() map[evdev.AbsoluteType]evdev.Axis {
	m := make(map[evdev.AbsoluteType]evdev.Axis, len(n.abs))
	for _, typ := range n.abs {
		m[typ] = evdev.Axis{}
	}
	return m
}

func (n fakeNode) Close() error {
	*n.closed++
	return nil
}

var (
	touchAxes = []evdev.AbsoluteType{
		evdev.AbsoluteX, evdev.AbsoluteY,
		evdev.AbsoluteMTPositionX, evdev.AbsoluteMTPositionY,
	}
	penAxes = []evdev.AbsoluteType{evdev.AbsoluteX, evdev.AbsoluteY}
)

// dir にノードファイルを作り、名前と能力を返すScannerを作る
func newFakeScanner(t *testing.T, nodes map[string]fakeNode) (Scanner, *int) {
	t.Helper()
	dir := t.TempDir()
	closed := new(int)
	for name := range nodes {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mice"), nil, 0600))

	return Scanner{
		Dir: dir,
		Open: func(path string) (InputNode, error) {
			n, ok := nodes[filepath.Base(path)]
			if !ok {
				return nil, os.ErrPermission
			}
			n.closed = closed
			return n, nil
		},
	}, closed
}

func TestScanClassifiesByAbsoluteAxes(t *testing.T) {
	scanner, closed := newFakeScanner(t, map[string]fakeNode{
		"event0":  {name: "Power Button"},
		"event10": {name: "goodix-ts", abs: touchAxes},
		"event2":  {name: "Wacom Pen", abs: penAxes},
	})

	devices, err := scanner.Scan()
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, 3, *closed)

	// 番号順に並ぶ
	assert.Equal(t, "Power Button", devices[0].Name)
	assert.Equal(t, filepath.Join(scanner.Dir, "event0"), devices[0].Path)
	assert.False(t, devices[0].Absolute)
	assert.False(t, devices[0].IsTouchscreen())

	assert.Equal(t, "Wacom Pen", devices[1].Name)
	assert.True(t, devices[1].Absolute)
	assert.False(t, devices[1].MultiTouch)

	assert.Equal(t, "goodix-ts", devices[2].Name)
	assert.Equal(t, []string{"event10"}, devices[2].Handlers)
	assert.True(t, devices[2].IsTouchscreen())
}

func TestDetectTouchscreenThroughScanner(t *testing.T) {
	scanner, _ := newFakeScanner(t, map[string]fakeNode{
		"event1": {name: "Wacom Pen", abs: penAxes},
		"event4": {name: "ft5x06", abs: touchAxes},
		"event7": {name: "second-ts", abs: touchAxes},
	})

	path, err := DetectTouchscreen(scanner.Scan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scanner.Dir, "event4"), path)
}

func TestDetectTouchscreenNone(t *testing.T) {
	scanner, _ := newFakeScanner(t, map[string]fakeNode{
		"event0": {name: "kbd"},
		"event1": {name: "Wacom Pen", abs: penAxes},
	})

	_, err := DetectTouchscreen(scanner.Scan)
	assert.ErrorIs(t, err, ErrNoTouchscreen)
}

func TestScanSkipsUnopenableNodes(t *testing.T) {
	scanner, _ := newFakeScanner(t, map[string]fakeNode{
		"event3": {name: "ft5x06", abs: touchAxes},
	})
	require.NoError(t, os.WriteFile(filepath.Join(scanner.Dir, "event1"), nil, 0600))

	devices, err := scanner.Scan()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "ft5x06", devices[0].Name)
}

func TestScanFailsWhenNothingOpens(t *testing.T) {
	scanner, _ := newFakeScanner(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(scanner.Dir, "event0"), nil, 0600))

	_, err := scanner.Scan()
	assert.ErrorIs(t, err, os.ErrPermission)

	_, err = DetectTouchscreen(scanner.Scan)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestFindTouchscreenNone(t *testing.T) {
	_, ok := FindTouchscreen([]Device{{Name: "kbd", Path: "/dev/input/event0"}})
	assert.False(t, ok)
}

func TestDeviceMonitorReportsRemovalAndCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event3")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	logger, _ := test.NewNullLogger()
	dm, err := NewDeviceMonitor(path, logger)
	require.NoError(t, err)
	dm.debounce = 10 * time.Millisecond

	events := make(chan DeviceEvent, 4)
	dm.RegisterCallback(func(ev DeviceEvent) { events <- ev })
	require.NoError(t, dm.Start())
	defer dm.Stop()

	require.NoError(t, os.Remove(path))
	select {
	case ev := <-events:
		assert.Equal(t, DeviceRemoved, ev.Type)
		assert.Equal(t, path, ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("removal was not reported")
	}

	require.NoError(t, os.WriteFile(path, nil, 0600))
	select {
	case ev := <-events:
		assert.Equal(t, DeviceAdded, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("creation was not reported")
	}
}

func TestDeviceMonitorStopWithoutStart(t *testing.T) {
	dm, err := NewDeviceMonitor(filepath.Join(t.TempDir(), "event0"), nil)
	require.NoError(t, err)
	dm.Stop()
	dm.Stop()
}
