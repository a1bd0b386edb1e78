package device

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/char5742/fbtouch/internal/consts"
)

// Handle は開いているデジタイザを表すインターフェース
type Handle interface {
	io.Writer
	io.Closer
	// AbsInfo は絶対座標軸の情報を問い合わせる
	AbsInfo(axis uint16) (AbsInfo, error)
	Path() string
}

// AbsInfo は struct input_absinfo に対応する
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// MaxTrackingID はABS_MT_TRACKING_IDの上限。これを超えると0に戻る
const MaxTrackingID int32 = math.MaxInt32

// Range はデジタイザの座標範囲と回転設定
type Range struct {
	XMin     int32 `json:"xmin" toml:"xmin"`
	XMax     int32 `json:"xmax" toml:"xmax"`
	YMin     int32 `json:"ymin" toml:"ymin"`
	YMax     int32 `json:"ymax" toml:"ymax"`
	Rotation int   `json:"rotation" toml:"-"`
}

// Kind はデバイスエラーの種類
type Kind int

const (
	KindOpen Kind = iota + 1
	KindQuery
)

var (
	ErrOpenFailed  = errors.New("cannot open touch device")
	ErrQueryFailed = errors.New("cannot query touch device axis")
)

// Error はデバイスを開く・問い合わせる際のエラー
type Error struct {
	Kind Kind
	Path string
	Axis uint16 // KindQuery のときのみ有効
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindOpen:
		return fmt.Sprintf("%v %s: %v", ErrOpenFailed, e.Path, e.Err)
	case KindQuery:
		return fmt.Sprintf("%v %s (abs 0x%02x): %v", ErrQueryFailed, e.Path, e.Axis, e.Err)
	}
	return fmt.Sprintf("touch device %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is は errors.Is(err, ErrOpenFailed) などで種類を判別できるようにする
func (e *Error) Is(target error) bool {
	switch target {
	case ErrOpenFailed:
		return e.Kind == KindOpen
	case ErrQueryFailed:
		return e.Kind == KindQuery
	}
	return false
}

// InputID はデバイス識別子を表す構造体
type InputID struct {
	Bustype uint16 // バスタイプ
	Vendor  uint16 // ベンダーID
	Product uint16 // 製品ID
	Version uint16 // バージョン
}

// UserDev はuinputユーザーデバイスの設定を表す構造体
type UserDev struct {
	Name       [consts.MaxNameSize]byte // デバイス名
	ID         InputID                  // デバイス識別子
	EffectsMax uint32                   // 最大エフェクト数
	Absmax     [consts.AbsSize]int32    // 絶対座標の最大値
	Absmin     [consts.AbsSize]int32    // 絶対座標の最小値
	Absfuzz    [consts.AbsSize]int32    // 絶対座標のファジー値
	Absflat    [consts.AbsSize]int32    // 絶対座標のフラット値
}
