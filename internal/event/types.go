package event

import (
	"bytes"
	"encoding/binary"
	"syscall"
	"time"
)

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Abs = 0x03 // 絶対座標イベント

	AbsX            = 0x00 // X軸の絶対座標
	AbsY            = 0x01 // Y軸の絶対座標
	AbsMtPositionX  = 0x35 // マルチタッチのX座標
	AbsMtPositionY  = 0x36 // マルチタッチのY座標
	AbsMtTrackingId = 0x39 // タッチ追跡用ID

	SynReport = 0     // イベント報告の同期
	BtnTouch  = 0x14a // タッチイベント
)

// Event は入力イベントを表す構造体
type Event struct {
	Time  syscall.Timeval // イベント発生時刻
	Type  uint16          // イベントタイプ
	Code  uint16          // イベントコード
	Value int32           // イベント値
}

// New は指定時刻のイベントを作成する
func New(t time.Time, typ, code uint16, value int32) Event {
	return Event{
		Time:  syscall.NsecToTimeval(t.UnixNano()),
		Type:  typ,
		Code:  code,
		Value: value,
	}
}

// Size はカーネルに渡すイベント1件のバイト数
func Size() int {
	return binary.Size(Event{})
}

// Marshal はイベントをカーネルのinput_event形式に変換する
func (e Event) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal はinput_event形式のバイト列をイベントに戻す
func Unmarshal(b []byte) (Event, error) {
	var e Event
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &e)
	return e, err
}

// Name はログ用のイベントコード名を返す
func Name(typ, code uint16) string {
	switch {
	case typ == Syn && code == SynReport:
		return "SYN_REPORT"
	case typ == Key && code == BtnTouch:
		return "BTN_TOUCH"
	case typ == Abs && code == AbsX:
		return "ABS_X"
	case typ == Abs && code == AbsY:
		return "ABS_Y"
	case typ == Abs && code == AbsMtPositionX:
		return "ABS_MT_POSITION_X"
	case typ == Abs && code == AbsMtPositionY:
		return "ABS_MT_POSITION_Y"
	case typ == Abs && code == AbsMtTrackingId:
		return "ABS_MT_TRACKING_ID"
	}
	return "UNKNOWN"
}
