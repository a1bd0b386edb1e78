package consts

// UIInput デバイスの定数（uinput.hから）
const (
	UinputPath  = "/dev/uinput" // uinputデバイスのパス
	MaxNameSize = 80            // デバイス名の最大サイズ
	DevCreate   = 0x5501        // デバイス作成用のIOCTL
	DevDestroy  = 0x5502        // デバイス破棄用のIOCTL
	SetEvBit    = 0x40045564    // イベントビット設定用のIOCTL
	SetKeyBit   = 0x40045565    // キービット設定用のIOCTL
	SetAbsBit   = 0x40045567    // 絶対座標ビット設定用のIOCTL
	SetPropBit  = 0x4004556a    // プロパティビット設定用のIOCTL
	BusVirtual  = 0x06          // 仮想バスタイプ
	PropDirect  = 0x01          // タッチスクリーン（直接入力）プロパティ
)

// その他のデバイス制御用定数
const (
	AbsSize   = 64         // 絶対座標の配列サイズ
	EVIOCGRAB = 0x40044590 // デバイスの排他制御用のIOCTL
)

// ioctlリクエストのエンコード（Linuxの_IOCマクロ）
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocRead = 2
)

// AbsInfoSize は struct input_absinfo のサイズ（int32 x 6）
const AbsInfoSize = 24

// EVIOCGABS は絶対座標軸の情報を取得するIOCTLを返す
// EVIOCGABS(abs) = _IOR('E', 0x40 + abs, struct input_absinfo)
func EVIOCGABS(axis uint16) uintptr {
	return uintptr(iocRead<<iocDirShift | uint32('E')<<iocTypeShift | (0x40+uint32(axis))<<iocNRShift | AbsInfoSize<<iocSizeShift)
}
