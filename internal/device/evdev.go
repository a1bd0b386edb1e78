package device

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/char5742/fbtouch/internal/consts"
	"github.com/char5742/fbtouch/internal/event"
	"github.com/char5742/fbtouch/internal/utils"
)

type evdevFile struct {
	file *os.File
}

// Open はタッチデバイスを読み書きモードで開く
func Open(path string) (Handle, error) {
	f, err := os.OpenFile(path, syscall.O_RDWR, 0)
	if err != nil {
		return nil, &Error{Kind: KindOpen, Path: path, Err: err}
	}
	return &evdevFile{file: f}, nil
}

func (d *evdevFile) Write(b []byte) (int, error) { return d.file.Write(b) }

func (d *evdevFile) Close() error { return d.file.Close() }

func (d *evdevFile) Path() string { return d.file.Name() }

func (d *evdevFile) AbsInfo(axis uint16) (AbsInfo, error) {
	var info AbsInfo
	if err := utils.IOCtlPtr(d.file, consts.EVIOCGABS(axis), unsafe.Pointer(&info)); err != nil {
		return AbsInfo{}, err
	}
	return info, nil
}

// QueryAxis は指定した軸の最小値と最大値を取得する
func QueryAxis(h Handle, axis uint16) (int32, int32, error) {
	info, err := h.AbsInfo(axis)
	if err != nil {
		return 0, 0, &Error{Kind: KindQuery, Path: h.Path(), Axis: axis, Err: err}
	}
	return info.Minimum, info.Maximum, nil
}

// QueryRange はX軸とY軸の範囲を取得する
func QueryRange(h Handle, rotation int) (Range, error) {
	r := Range{Rotation: rotation}
	var err error
	if r.XMin, r.XMax, err = QueryAxis(h, event.AbsX); err != nil {
		return Range{}, err
	}
	if r.YMin, r.YMax, err = QueryAxis(h, event.AbsY); err != nil {
		return Range{}, err
	}
	return r, nil
}
