package features

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kenshaw/evdev"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const inputDir = "/dev/input"

// ErrNoTouchscreen はマルチタッチのデジタイザが見つからないことを表す
var ErrNoTouchscreen = errors.New("no touchscreen found")

// Device は/dev/input/event*の入力デバイス
type Device struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Handlers   []string `json:"handlers"`
	Absolute   bool     `json:"absolute"`
	MultiTouch bool     `json:"multitouch"`
}

// IsTouchscreen は絶対座標のマルチタッチデバイスかどうかを返す
func (d Device) IsTouchscreen() bool {
	return d.Absolute && d.MultiTouch
}

// InputNode は能力ビットを問い合わせられる入力デバイスノード
type InputNode interface {
	Name() string
	AbsoluteTypes() map[evdev.AbsoluteType]evdev.Axis
	Close() error
}

// Scanner は入力デバイスノードを開いて種類を判定する
type Scanner struct {
	Dir  string
	Open func(path string) (InputNode, error)
}

var defaultScanner = Scanner{Dir: inputDir, Open: openInputNode}

func openInputNode(path string) (InputNode, error) {
	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return evdev.Open(fd), nil
}

// ScanTouchDevices は接続されている入力デバイスを列挙する
func ScanTouchDevices() ([]Device, error) {
	return defaultScanner.Scan()
}

// Scan はeventN の番号順にデバイスを列挙する。
// 開けないノードは飛ばし、1つも開けなかった場合だけエラーを返す。
func (s Scanner) Scan() ([]Device, error) {
	dir := s.Dir
	if dir == "" {
		dir = inputDir
	}
	open := s.Open
	if open == nil {
		open = openInputNode
	}

	paths, err := filepath.Glob(filepath.Join(dir, "event[0-9]*"))
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return eventIndex(paths[i]) < eventIndex(paths[j])
	})

	var (
		devices []Device
		openErr error
	)
	for _, path := range paths {
		node, err := open(path)
		if err != nil {
			if openErr == nil {
				openErr = errors.Wrapf(err, "%s を開けませんでした", path)
			}
			continue
		}
		devices = append(devices, classify(path, node))
		node.Close()
	}
	if len(devices) == 0 && openErr != nil {
		return nil, openErr
	}
	return devices, nil
}

func eventIndex(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return -1
	}
	return n
}

// ABS_X/ABS_Yで絶対座標、ABS_MT_POSITION_X/Yでマルチタッチと判定する
func classify(path string, node InputNode) Device {
	abs := node.AbsoluteTypes()
	has := func(typ evdev.AbsoluteType) bool {
		_, ok := abs[typ]
		return ok
	}
	return Device{
		Name:       node.Name(),
		Path:       path,
		Handlers:   []string{filepath.Base(path)},
		Absolute:   has(evdev.AbsoluteX) && has(evdev.AbsoluteY),
		MultiTouch: has(evdev.AbsoluteMTPositionX) && has(evdev.AbsoluteMTPositionY),
	}
}

// FindTouchscreen は最初に見つかったタッチスクリーンのパスを返す
func FindTouchscreen(devices []Device) (string, bool) {
	for _, d := range devices {
		if d.IsTouchscreen() && d.Path != "" {
			return d.Path, true
		}
	}
	return "", false
}

// DetectTouchscreen はデバイスを列挙して最初のタッチスクリーンを返す
func DetectTouchscreen(scan func() ([]Device, error)) (string, error) {
	devices, err := scan()
	if err != nil {
		return "", errors.Wrap(err, "入力デバイスの一覧を取得できませんでした")
	}
	path, ok := FindTouchscreen(devices)
	if !ok {
		return "", ErrNoTouchscreen
	}
	return path, nil
}

// DeviceEventType はデバイスイベントの種類を表す
type DeviceEventType int

const (
	DeviceAdded DeviceEventType = iota
	DeviceRemoved
)

func (t DeviceEventType) String() string {
	if t == DeviceRemoved {
		return "removed"
	}
	return "added"
}

// DeviceEvent はデバイスの変更イベントを表す
type DeviceEvent struct {
	Type DeviceEventType
	Path string
}

// DeviceCallback はデバイスイベント発生時に呼び出されるコールバック関数の型
type DeviceCallback func(event DeviceEvent)

// DeviceMonitor は使用中のデジタイザのデバイスノードを監視する
type DeviceMonitor struct {
	watcher   *fsnotify.Watcher
	path      string
	callbacks []DeviceCallback
	mutex     sync.RWMutex
	stopChan  chan struct{}
	doneChan  chan struct{}
	present   bool
	started   bool
	debounce  time.Duration
	log       logrus.FieldLogger
}

// NewDeviceMonitor はpathのデバイスノードを監視するDeviceMonitorを作成する
func NewDeviceMonitor(path string, log logrus.FieldLogger) (*DeviceMonitor, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DeviceMonitor{
		watcher:  watcher,
		path:     filepath.Clean(path),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		debounce: 200 * time.Millisecond,
		log:      log.WithField("device", path),
	}, nil
}

// Start はデバイスの監視を開始する
func (dm *DeviceMonitor) Start() error {
	if err := dm.watcher.Add(filepath.Dir(dm.path)); err != nil {
		return err
	}
	dm.present = fileExists(dm.path)
	dm.started = true
	dm.log.WithField("present", dm.present).Info("デバイスモニターを開始します")
	go dm.watchEvents()
	return nil
}

// Stop はデバイスの監視を停止する
func (dm *DeviceMonitor) Stop() {
	select {
	case <-dm.stopChan:
		return
	default:
	}
	close(dm.stopChan)
	dm.watcher.Close()
	if dm.started {
		<-dm.doneChan
	}
	dm.log.Info("デバイスモニターを停止しました")
}

// RegisterCallback はデバイスイベントのコールバック関数を登録する
func (dm *DeviceMonitor) RegisterCallback(callback DeviceCallback) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	dm.callbacks = append(dm.callbacks, callback)
}

// fsnotifyのイベントをまとめてからデバイスの有無を確認する
func (dm *DeviceMonitor) watchEvents() {
	defer close(dm.doneChan)

	timer := time.NewTimer(dm.debounce)
	timer.Stop()

	for {
		select {
		case <-dm.stopChan:
			timer.Stop()
			return

		case <-timer.C:
			dm.check()

		case ev, ok := <-dm.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != dm.path {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				timer.Reset(dm.debounce)
			}

		case err, ok := <-dm.watcher.Errors:
			if !ok {
				return
			}
			dm.log.WithError(err).Warn("ファイルシステム監視エラー")
		}
	}
}

func (dm *DeviceMonitor) check() {
	present := fileExists(dm.path)
	if present == dm.present {
		return
	}
	dm.present = present

	ev := DeviceEvent{Type: DeviceAdded, Path: dm.path}
	if !present {
		ev.Type = DeviceRemoved
	}
	dm.log.WithField("event", ev.Type).Info("デバイスの状態が変化しました")

	dm.mutex.RLock()
	callbacks := append([]DeviceCallback(nil), dm.callbacks...)
	dm.mutex.RUnlock()
	for _, cb := range callbacks {
		cb(ev)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
