package features

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/char5742/fbtouch/internal/calibration"
	"github.com/char5742/fbtouch/internal/device"
	"github.com/char5742/fbtouch/internal/event"
)

// Action はリモート画面から届くポインタ操作
type Action int

const (
	ActionDrag    Action = -1 // 押したまま移動
	ActionRelease Action = 0  // 指を離す
	ActionPress   Action = 1  // 指を置く
)

func (a Action) String() string {
	switch a {
	case ActionDrag:
		return "drag"
	case ActionRelease:
		return "release"
	case ActionPress:
		return "press"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction は文字列の操作名をActionに変換する
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "press", "down", "d":
		return ActionPress, nil
	case "drag", "move", "m":
		return ActionDrag, nil
	case "release", "up", "u":
		return ActionRelease, nil
	}
	return 0, fmt.Errorf("invalid touch action %q", s)
}

const (
	// 指が置かれていない状態のトラッキングID
	noTrackingID int32 = -1
	maxPressure        = 255
)

// ScreenInfo はフレームバッファの解像度と回転（読み取り専用）
type ScreenInfo struct {
	Xres   int `json:"xres"`
	Yres   int `json:"yres"`
	Rotate int `json:"rotate"`
}

// Opener はデバイスを開く関数（テストで差し替える）
type Opener func(path string) (device.Handle, error)

// InitOptions はタッチスクリーン初期化の設定
type InitOptions struct {
	DevicePath      string
	Rotate          int
	CalibrationFile string

	// Virtual が指定された場合は実機の代わりにuinputで仮想デバイスを作る
	Virtual    *device.Range
	UinputPath string

	Logger logrus.FieldLogger
	Opener Opener
}

// Touchscreen は1台の仮想デジタイザの状態を保持する
type Touchscreen struct {
	mu         sync.Mutex
	dev        device.Handle
	rng        device.Range
	cal        calibration.Params
	trackingID int32
	closed     bool

	log   logrus.FieldLogger
	fatal func(format string, args ...interface{})
	now   func() time.Time
}

// InitTouch はデバイスを開き、座標範囲を取得してキャリブレーションを読み込む。
// デバイスのオープンと範囲取得の失敗のみエラーとして返す。
func InitTouch(opts InitOptions) (*Touchscreen, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	open := opts.Opener
	if open == nil {
		open = device.Open
	}

	var (
		dev device.Handle
		err error
	)
	if opts.Virtual != nil {
		log.WithField("uinput", opts.UinputPath).Info("仮想タッチスクリーンを作成します")
		dev, err = device.CreateVirtual(opts.UinputPath, "fbtouch virtual touchscreen", *opts.Virtual)
	} else {
		log.WithField("device", opts.DevicePath).Info("タッチデバイスを初期化します")
		dev, err = open(opts.DevicePath)
	}
	if err != nil {
		log.WithError(err).Error("タッチデバイスを開けませんでした")
		return nil, err
	}

	rng, err := device.QueryRange(dev, opts.Rotate)
	if err != nil {
		log.WithError(err).Error("タッチデバイスの座標範囲を取得できませんでした")
		_ = dev.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"xmin": rng.XMin, "xmax": rng.XMax,
		"ymin": rng.YMin, "ymax": rng.YMax,
		"rotate": rng.Rotation,
	}).Info("タッチデバイスの座標範囲")

	ts := &Touchscreen{
		dev:        dev,
		rng:        rng,
		cal:        calibration.Load(opts.CalibrationFile, log),
		trackingID: noTrackingID,
		log:        log,
		now:        time.Now,
	}
	ts.fatal = log.Fatalf
	return ts, nil
}

// Cleanup はデバイスを閉じる。複数回呼んでもよい
func (t *Touchscreen) Cleanup() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.dev == nil {
		return nil
	}
	t.closed = true
	return t.dev.Close()
}

// InjectTouchEvent は座標を変換し、操作に対応するイベント列を1フレームとして書き込む。
// 書き込みエラーはログに記録して残りのイベントを送り続ける（SYN_REPORTを落とさないため）。
func (t *Touchscreen) InjectTouchEvent(action Action, x, y int, scr *ScreenInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		t.log.WithField("action", action).Warn("タッチデバイスは閉じられています")
		return
	}

	tx, ty := t.cal.Transform(int32(x), int32(y))

	var (
		sendPos    bool
		sendTouch  bool
		trkIDValue int32
		touchValue int32
		pressure   int
	)
	switch action {
	case ActionPress:
		sendPos = true
		sendTouch = true
		t.trackingID = nextTrackingID(t.trackingID)
		trkIDValue = t.trackingID
		touchValue = 1
		pressure = maxPressure
	case ActionRelease:
		sendTouch = true
		t.trackingID = noTrackingID
		trkIDValue = noTrackingID
		touchValue = 0
		pressure = 0
	case ActionDrag:
		sendPos = true
		pressure = maxPressure
	default:
		t.fatal("invalid touch action: %v", action)
		return
	}

	if sendTouch {
		t.writeEvent(event.Abs, event.AbsMtTrackingId, trkIDValue)
		t.writeEvent(event.Key, event.BtnTouch, touchValue)
	}
	if sendPos {
		t.writeEvent(event.Abs, event.AbsMtPositionX, tx)
		t.writeEvent(event.Abs, event.AbsMtPositionY, ty)
		t.writeEvent(event.Abs, event.AbsX, tx)
		t.writeEvent(event.Abs, event.AbsY, ty)
	}
	t.writeEvent(event.Syn, event.SynReport, 0)

	fields := logrus.Fields{
		"action":   action,
		"screen":   [2]int{x, y},
		"touch":    [2]int32{tx, ty},
		"tracking": t.trackingID,
		"pressure": pressure,
	}
	if scr != nil {
		fields["fb"] = fmt.Sprintf("%dx%d@%d", scr.Xres, scr.Yres, scr.Rotate)
	}
	t.log.WithFields(fields).Debug("injectTouchEvent")
}

// 宣言した範囲を超えないよう上限で0に戻す
func nextTrackingID(id int32) int32 {
	if id >= device.MaxTrackingID || id < noTrackingID {
		return 0
	}
	return id + 1
}

// 1件のイベントを書き込む。失敗はログのみ
func (t *Touchscreen) writeEvent(typ, code uint16, value int32) {
	ev := event.New(t.now(), typ, code, value)
	buf, err := ev.Marshal()
	if err == nil {
		_, err = t.dev.Write(buf)
	}
	if err != nil {
		t.log.WithError(err).WithField("event", event.Name(typ, code)).Error("イベントの書き込みに失敗しました")
	}
}

// TrackingID は現在のトラッキングIDを返す（-1は指が置かれていない状態）
func (t *Touchscreen) TrackingID() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trackingID
}

// Active は指が置かれているかを返す
func (t *Touchscreen) Active() bool {
	return t.TrackingID() != noTrackingID
}

// Range は起動時に取得した座標範囲を返す（変換には使われない）
func (t *Touchscreen) Range() device.Range { return t.rng }

// Calibration は読み込んだキャリブレーションを返す
func (t *Touchscreen) Calibration() calibration.Params { return t.cal }

// DevicePath は開いているデバイスのパスを返す
func (t *Touchscreen) DevicePath() string { return t.dev.Path() }
