package api

import (
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/char5742/fbtouch/internal/calibration"
	"github.com/char5742/fbtouch/internal/config"
	"github.com/char5742/fbtouch/internal/device"
	"github.com/char5742/fbtouch/internal/features"
)

var (
	ErrNotRunning     = errors.New("touch service is not running")
	ErrAlreadyRunning = errors.New("touch service is already running")
	ErrNoTouchscreen  = features.ErrNoTouchscreen
)

// TouchService はタッチスクリーンの初期化からイベント注入までを管理する構造体
type TouchService struct {
	cfg         *config.Config
	statusMutex sync.RWMutex
	running     bool
	touch       *features.Touchscreen
	monitor     *features.DeviceMonitor
	log         logrus.FieldLogger

	opener features.Opener
	scan   func() ([]features.Device, error)
}

// Status はサービスの状態
type Status struct {
	Running     bool               `json:"running"`
	Device      string             `json:"device,omitempty"`
	Range       *device.Range      `json:"range,omitempty"`
	Calibration *calibration.Params `json:"calibration,omitempty"`
	Identity    bool               `json:"identity"`
	TrackingID  int32              `json:"tracking_id"`
	Active      bool               `json:"active"`
}

// NewTouchService は新しいタッチサービスを作成する
func NewTouchService(cfg *config.Config, log logrus.FieldLogger) *TouchService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TouchService{
		cfg:  cfg,
		log:  log,
		scan: features.ScanTouchDevices,
	}
}

// Start はタッチデバイスを初期化する
func (s *TouchService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	tc := s.cfg.Touch
	opts := features.InitOptions{
		DevicePath:      tc.Device,
		Rotate:          tc.Rotate,
		CalibrationFile: tc.CalibrationFile,
		UinputPath:      tc.UinputPath,
		Logger:          s.log,
		Opener:          s.opener,
	}
	if tc.Virtual {
		r := tc.VirtualRange
		opts.Virtual = &r
	} else if opts.DevicePath == "" {
		path, err := s.detect()
		if err != nil {
			return err
		}
		opts.DevicePath = path
	}

	touch, err := features.InitTouch(opts)
	if err != nil {
		return pkgerrors.Wrap(err, "タッチデバイスの初期化に失敗しました")
	}
	s.touch = touch

	if tc.Watch && !tc.Virtual {
		s.startMonitor(touch.DevicePath())
	}

	s.running = true
	return nil
}

// 設定でデバイスが指定されていない場合はタッチスクリーンを探す
func (s *TouchService) detect() (string, error) {
	path, err := features.DetectTouchscreen(s.scan)
	if err != nil {
		return "", err
	}
	s.log.WithField("device", path).Info("タッチスクリーンを検出しました")
	return path, nil
}

func (s *TouchService) startMonitor(path string) {
	monitor, err := features.NewDeviceMonitor(path, s.log)
	if err != nil {
		s.log.WithError(err).Warn("デバイスモニターを作成できませんでした")
		return
	}
	// 再オープンはしない。状態の変化を記録するだけ
	monitor.RegisterCallback(func(ev features.DeviceEvent) {
		if ev.Type == features.DeviceRemoved {
			s.log.WithField("device", ev.Path).Warn("タッチデバイスが取り外されました、サービスを再起動してください")
		}
	})
	if err := monitor.Start(); err != nil {
		s.log.WithError(err).Warn("デバイスモニターを開始できませんでした")
		monitor.Stop()
		return
	}
	s.monitor = monitor
}

// Stop はデバイスを閉じる
func (s *TouchService) Stop() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	s.running = false

	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
	err := s.touch.Cleanup()
	s.touch = nil
	s.log.Info("タッチサービスを停止しました")
	return err
}

// IsRunning はサービスが実行中かどうかを返す
func (s *TouchService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// Inject はタッチイベントを注入する
func (s *TouchService) Inject(action features.Action, x, y int, scr *features.ScreenInfo) error {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	if !s.running {
		return ErrNotRunning
	}
	s.touch.InjectTouchEvent(action, x, y, scr)
	return nil
}

// Status は現在の状態を返す
func (s *TouchService) Status() Status {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	st := Status{Running: s.running, TrackingID: -1}
	if !s.running {
		return st
	}
	r := s.touch.Range()
	cal := s.touch.Calibration()
	st.Device = s.touch.DevicePath()
	st.Range = &r
	st.Calibration = &cal
	st.Identity = cal.IsIdentity()
	st.TrackingID = s.touch.TrackingID()
	st.Active = st.TrackingID != -1
	return st
}
