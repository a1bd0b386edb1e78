// Package calibration はtslib形式のキャリブレーションファイル（pointercal）を読み込み、
// 画面座標をタッチコントローラの座標に変換する。
package calibration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stage は解析が失敗した段階を表す
type Stage int

const (
	StageMatrix     Stage = iota // 7個の行列係数
	StageResolution              // 解像度（Xres, Yres）
	StageRotation                // 回転
)

func (s Stage) String() string {
	switch s {
	case StageMatrix:
		return "matrix"
	case StageResolution:
		return "resolution"
	case StageRotation:
		return "rotation"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ErrDegenerate は scale が 0 になる行列を表す
var ErrDegenerate = pkgerrors.New("degenerate calibration matrix (scale == 0)")

// ParseError はキャリブレーションファイルの解析エラー
type ParseError struct {
	Stage Stage
	Index int // 失敗した整数の位置（0始まり）
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("calibration %s: integer #%d: %v", e.Stage, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Params はキャリブレーション係数と前計算値
type Params struct {
	A        [7]int64 // a0..a6
	Xres     int64
	Yres     int64
	Rotation int64

	// 行列から一度だけ計算される値
	Scale int64
	XOff  int64
	YOff  int64
}

// Identity は座標を変更しない既定のパラメータを返す
func Identity() Params {
	return Params{
		A:     [7]int64{1, 0, 0, 0, 1, 0, 1},
		Scale: 1,
	}
}

// IsIdentity は恒等変換かどうかを返す
func (p Params) IsIdentity() bool {
	id := Identity()
	return p.A == id.A && p.Scale == id.Scale && p.XOff == id.XOff && p.YOff == id.YOff
}

func (p *Params) derive() {
	a := p.A
	p.Scale = a[0]*a[4] - a[1]*a[3]
	p.XOff = a[1]*a[5] - a[2]*a[4]
	p.YOff = a[2]*a[3] - a[0]*a[5]
}

// Transform は画面座標をタッチ座標に変換する。
// 整数演算で0方向に切り捨て、結果はint32に切り詰める。
func (p Params) Transform(x, y int32) (int32, int32) {
	if p.Scale == 0 {
		return x, y
	}
	a := p.A
	xin, yin := int64(x), int64(y)
	dX := (a[6]*(a[4]*xin-a[1]*yin) + p.XOff) / p.Scale
	dY := (a[6]*(a[0]*yin-a[3]*xin) + p.YOff) / p.Scale
	return int32(dX), int32(dY)
}

// Fields はログ用のフィールドを返す
func (p Params) Fields() logrus.Fields {
	return logrus.Fields{
		"matrix":   p.A,
		"xres":     p.Xres,
		"yres":     p.Yres,
		"rotation": p.Rotation,
		"scale":    p.Scale,
		"xoff":     p.XOff,
		"yoff":     p.YOff,
	}
}

// Parse は空白区切りの整数列を解析する。
// 行列が読めない場合は恒等変換とエラーを返す。解像度・回転の失敗時は
// それまでに読めた値とエラーを返す（呼び出し側はエラーを記録するだけでよい）。
func Parse(r io.Reader) (Params, error) {
	ir := intReader{r: bufio.NewReader(r)}

	index := 0
	next := func() (int64, error) {
		defer func() { index++ }()
		return ir.next()
	}

	var p Params
	for i := range p.A {
		v, err := next()
		if err != nil {
			return Identity(), &ParseError{Stage: StageMatrix, Index: i, Err: err}
		}
		p.A[i] = v
	}
	p.derive()
	if p.Scale == 0 {
		return Identity(), ErrDegenerate
	}

	for _, dst := range []*int64{&p.Xres, &p.Yres} {
		v, err := next()
		if err != nil {
			return p, &ParseError{Stage: StageResolution, Index: index - 1, Err: err}
		}
		*dst = v
	}

	v, err := next()
	if err != nil {
		return p, &ParseError{Stage: StageRotation, Index: index - 1, Err: err}
	}
	p.Rotation = v

	return p, nil
}

// intReader は scanf の %ld と同じ規則で整数を読む。
// 先頭の空白を読み飛ばし、数字が続く限り読む。数字以外の文字は次の読み込みに残す。
type intReader struct {
	r *bufio.Reader
}

func (ir intReader) next() (int64, error) {
	c, err := ir.r.ReadByte()
	for err == nil && isSpace(c) {
		c, err = ir.r.ReadByte()
	}
	if err != nil {
		return 0, unexpectedEOF(err)
	}

	var digits []byte
	if c == '+' || c == '-' {
		digits = append(digits, c)
		if c, err = ir.r.ReadByte(); err != nil {
			return 0, unexpectedEOF(err)
		}
	}
	start := len(digits)
	for err == nil && c >= '0' && c <= '9' {
		digits = append(digits, c)
		c, err = ir.r.ReadByte()
	}
	switch {
	case err == nil:
		_ = ir.r.UnreadByte()
	case err != io.EOF:
		return 0, err
	}

	if len(digits) == start {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, pkgerrors.Errorf("unexpected %q", c)
	}
	return strconv.ParseInt(string(digits), 10, 64)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Load はキャリブレーションファイルを読み込む。失敗しても呼び出し側には返さず、
// 恒等変換にフォールバックする。
func Load(path string, log logrus.FieldLogger) Params {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("file", path)

	if path == "" {
		log.Info("キャリブレーションファイルが指定されていません、恒等変換を使用します")
		return Identity()
	}

	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Info("キャリブレーションファイルを開けません、恒等変換を使用します")
		return Identity()
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		var pe *ParseError
		switch {
		case pkgerrors.As(err, &pe) && pe.Stage != StageMatrix:
			// 行列は読めているので、それまでの値を使う
			log.WithError(err).Infof("%sの読み込みに失敗しました", pe.Stage)
		default:
			log.WithError(err).Error("キャリブレーション行列の読み込みに失敗しました、恒等変換を使用します")
			return Identity()
		}
	}

	log.WithFields(p.Fields()).Info("キャリブレーションを読み込みました")
	return p
}
