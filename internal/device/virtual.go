package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"github.com/pkg/errors"

	"github.com/char5742/fbtouch/internal/consts"
	"github.com/char5742/fbtouch/internal/event"
	"github.com/char5742/fbtouch/internal/utils"
)

// 実機のデジタイザがない環境向けに、uinputで作成する仮想タッチスクリーン
type virtualTouchScreen struct {
	name       string
	rng        Range
	deviceFile *os.File
}

// CreateVirtual はuinputを使って仮想タッチスクリーンを作成する
func CreateVirtual(uinputPath string, name string, r Range) (Handle, error) {
	if uinputPath == "" {
		uinputPath = consts.UinputPath
	}
	fd, err := createTouchScreen(uinputPath, name, r)
	if err != nil {
		return nil, &Error{Kind: KindOpen, Path: uinputPath, Err: err}
	}
	return &virtualTouchScreen{name: name, rng: r, deviceFile: fd}, nil
}

func (vt *virtualTouchScreen) Write(b []byte) (int, error) { return vt.deviceFile.Write(b) }

func (vt *virtualTouchScreen) Path() string { return vt.deviceFile.Name() }

func (vt *virtualTouchScreen) Close() error {
	_ = releaseDevice(vt.deviceFile)
	return vt.deviceFile.Close()
}

// uinputのファイルにはEVIOCGABSが使えないため、作成時の範囲を返す
func (vt *virtualTouchScreen) AbsInfo(axis uint16) (AbsInfo, error) {
	switch axis {
	case event.AbsX, event.AbsMtPositionX:
		return AbsInfo{Minimum: vt.rng.XMin, Maximum: vt.rng.XMax}, nil
	case event.AbsY, event.AbsMtPositionY:
		return AbsInfo{Minimum: vt.rng.YMin, Maximum: vt.rng.YMax}, nil
	case event.AbsMtTrackingId:
		return AbsInfo{Minimum: 0, Maximum: MaxTrackingID}, nil
	}
	return AbsInfo{}, syscall.EINVAL
}

func createTouchScreen(path string, name string, r Range) (*os.File, error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.Wrap(err, "uinputを開けませんでした")
	}

	// キー入力イベント(EV_KEY)とタッチ検出を登録する
	if err := registerBits(deviceFile, consts.SetEvBit, event.Key); err != nil {
		return nil, err
	}
	if err := registerBits(deviceFile, consts.SetKeyBit, event.BtnTouch); err != nil {
		return nil, err
	}

	// 絶対座標入力イベント(EV_ABS)と各軸を登録する
	if err := registerBits(deviceFile, consts.SetEvBit, event.Abs); err != nil {
		return nil, err
	}
	if err := registerBits(deviceFile, consts.SetAbsBit,
		event.AbsX,
		event.AbsY,
		event.AbsMtPositionX,
		event.AbsMtPositionY,
		event.AbsMtTrackingId,
	); err != nil {
		return nil, err
	}

	// タッチスクリーン（直接入力デバイス）として登録する
	if err := registerBits(deviceFile, consts.SetPropBit, consts.PropDirect); err != nil {
		return nil, err
	}

	userDev := UserDev{
		Name: toUinputName(name),
		ID: InputID{
			Bustype: consts.BusVirtual,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}
	userDev.Absmin[event.AbsX], userDev.Absmax[event.AbsX] = r.XMin, r.XMax
	userDev.Absmin[event.AbsY], userDev.Absmax[event.AbsY] = r.YMin, r.YMax
	userDev.Absmin[event.AbsMtPositionX], userDev.Absmax[event.AbsMtPositionX] = r.XMin, r.XMax
	userDev.Absmin[event.AbsMtPositionY], userDev.Absmax[event.AbsMtPositionY] = r.YMin, r.YMax
	userDev.Absmin[event.AbsMtTrackingId], userDev.Absmax[event.AbsMtTrackingId] = 0, MaxTrackingID

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, userDev); err != nil {
		_ = deviceFile.Close()
		return nil, errors.Wrap(err, "ユーザーデバイスバッファの書き込みに失敗しました")
	}
	if _, err := deviceFile.Write(buf.Bytes()); err != nil {
		_ = deviceFile.Close()
		return nil, errors.Wrap(err, "デバイス構造体をデバイスファイルに書き込むのに失敗しました")
	}
	if err := utils.IOCtl(deviceFile, consts.DevCreate, 0); err != nil {
		_ = deviceFile.Close()
		return nil, errors.Wrap(err, "デバイスの作成に失敗しました")
	}

	return deviceFile, nil
}

// ビットをまとめて登録する。失敗した場合はファイルを閉じる
func registerBits(deviceFile *os.File, cmd uintptr, bits ...uintptr) error {
	for _, b := range bits {
		if err := utils.IOCtl(deviceFile, cmd, b); err != nil {
			_ = deviceFile.Close()
			return errors.Wrap(err, fmt.Sprintf("ビット0x%xの登録に失敗しました (ioctl 0x%x)", b, cmd))
		}
	}
	return nil
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, 0)
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name string) [consts.MaxNameSize]byte {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
