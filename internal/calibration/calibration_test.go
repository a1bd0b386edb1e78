package calibration

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointercal")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestIdentityIsNoop(t *testing.T) {
	p := Identity()
	assert.True(t, p.IsIdentity())

	for _, c := range [][2]int32{
		{0, 0}, {100, 200}, {-5, 7}, {math.MaxInt32, math.MinInt32}, {math.MinInt32, math.MaxInt32},
	} {
		x, y := p.Transform(c[0], c[1])
		assert.Equal(t, c[0], x)
		assert.Equal(t, c[1], y)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	p := Load("", quietLogger())
	assert.Equal(t, Identity(), p)

	x, y := p.Transform(100, 200)
	assert.Equal(t, int32(100), x)
	assert.Equal(t, int32(200), y)
}

func TestLoadMissingFile(t *testing.T) {
	p := Load(filepath.Join(t.TempDir(), "nope"), quietLogger())
	assert.Equal(t, Identity(), p)
}

func TestLoadIdentityMatrixWithResolution(t *testing.T) {
	p := Load(writeFile(t, "1 0 0 0 1 0 1\n800 480\n0\n"), quietLogger())

	assert.Equal(t, int64(1), p.Scale)
	assert.Equal(t, int64(0), p.XOff)
	assert.Equal(t, int64(0), p.YOff)
	assert.Equal(t, int64(800), p.Xres)
	assert.Equal(t, int64(480), p.Yres)
	assert.Equal(t, int64(0), p.Rotation)

	x, y := p.Transform(50, 60)
	assert.Equal(t, int32(50), x)
	assert.Equal(t, int32(60), y)
}

func TestDerivedValues(t *testing.T) {
	p, err := Parse(strings.NewReader("-67 13 4000 9 -55 3000 65536 1024 600 1"))
	require.NoError(t, err)

	a := p.A
	assert.Equal(t, [7]int64{-67, 13, 4000, 9, -55, 3000, 65536}, a)
	assert.Equal(t, a[0]*a[4]-a[1]*a[3], p.Scale)
	assert.Equal(t, a[1]*a[5]-a[2]*a[4], p.XOff)
	assert.Equal(t, a[2]*a[3]-a[0]*a[5], p.YOff)
	assert.Equal(t, int64(1), p.Rotation)
}

func TestMalformedMatrixFallsBackToIdentity(t *testing.T) {
	for name, content := range map[string]string{
		"empty":     "",
		"too short": "1 0 0 0 1 0",
		"garbage":   "1 0 zero 0 1 0 1 800 480 0",
	} {
		t.Run(name, func(t *testing.T) {
			p, err := Parse(strings.NewReader(content))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, StageMatrix, pe.Stage)
			assert.Equal(t, Identity(), p)

			assert.Equal(t, Identity(), Load(writeFile(t, content), quietLogger()))
		})
	}
}

func TestDegenerateMatrix(t *testing.T) {
	p, err := Parse(strings.NewReader("0 0 5 0 0 5 1"))
	assert.ErrorIs(t, err, ErrDegenerate)
	assert.Equal(t, Identity(), p)

	assert.Equal(t, Identity(), Load(writeFile(t, "0 0 5 0 0 5 1"), quietLogger()))
}

func TestResolutionAndRotationAreBestEffort(t *testing.T) {
	p, err := Parse(strings.NewReader("2 0 0 0 2 0 1"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageResolution, pe.Stage)
	assert.Equal(t, 7, pe.Index)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(4), p.Scale)
	assert.Zero(t, p.Xres)
	assert.Zero(t, p.Yres)

	p, err = Parse(strings.NewReader("2 0 0 0 2 0 1 320"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageResolution, pe.Stage)
	assert.Equal(t, int64(320), p.Xres)
	assert.Zero(t, p.Yres)

	p, err = Parse(strings.NewReader("2 0 0 0 2 0 1 320 240"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageRotation, pe.Stage)
	assert.Equal(t, 9, pe.Index)
	assert.Equal(t, int64(240), p.Yres)

	loaded := Load(writeFile(t, "2 0 0 0 2 0 1 320"), quietLogger())
	assert.Equal(t, int64(4), loaded.Scale)
	assert.Equal(t, int64(320), loaded.Xres)
}

func TestParseReadsLeadingDigitsOfToken(t *testing.T) {
	// 数字の後ろの文字は次の整数の読み込みで失敗する
	p, err := Parse(strings.NewReader("2 0 0 0 2 0 1 480x 272 0"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageResolution, pe.Stage)
	assert.Equal(t, 8, pe.Index)
	assert.Equal(t, int64(480), p.Xres)
	assert.Zero(t, p.Yres)
	assert.Equal(t, int64(4), p.Scale)

	// 最後の整数に続く文字は読まれない
	p, err = Parse(strings.NewReader("2 0 0 0 2 0 1 800 480 90deg\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(90), p.Rotation)

	p, err = Parse(strings.NewReader("+2 0 -10 0 2 -20 1 800 480 0"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.A[0])
	assert.Equal(t, int64(-10), p.A[2])

	_, err = Parse(strings.NewReader("1 0 0 0 1 0 -"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageMatrix, pe.Stage)
	assert.Equal(t, 6, pe.Index)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTransformScalesAndOffsets(t *testing.T) {
	// X/Y を2倍にし、(10, 20) だけずらすタッチコントローラ
	// x_touch = (a0*x + a1*y + a2) / a6 の逆変換になる
	p, err := Parse(strings.NewReader("2 0 10 0 2 20 1 800 480 0"))
	require.NoError(t, err)
	require.Equal(t, int64(4), p.Scale)

	x, y := p.Transform(110, 220)
	// dX = (1*(2*110 - 0) + (0 - 10*2)) / 4 = 50
	// dY = (1*(2*220 - 0) + (0 - 2*20)) / 4 = 100
	assert.Equal(t, int32(50), x)
	assert.Equal(t, int32(100), y)
}

func TestTransformTruncatesTowardZero(t *testing.T) {
	p, err := Parse(strings.NewReader("2 0 0 0 2 0 1"))
	require.Error(t, err)

	x, y := p.Transform(3, -3)
	// 2*3/4 = 1.5 -> 1, 2*-3/4 = -1.5 -> -1
	assert.Equal(t, int32(1), x)
	assert.Equal(t, int32(-1), y)
}

func TestTransformGuardsZeroScale(t *testing.T) {
	p := Params{A: [7]int64{0, 0, 0, 0, 0, 0, 1}}
	x, y := p.Transform(7, 9)
	assert.Equal(t, int32(7), x)
	assert.Equal(t, int32(9), y)
}

func TestLoadLogsEachStage(t *testing.T) {
	logger, hook := test.NewNullLogger()

	Load("", logger)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	hook.Reset()
	Load(writeFile(t, "1 2"), logger)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	hook.Reset()
	Load(writeFile(t, "1 0 0 0 1 0 1 800 480 0"), logger)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, int64(1), hook.LastEntry().Data["scale"])
}
