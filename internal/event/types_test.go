package event

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeMatchesKernelLayout(t *testing.T) {
	assert.Equal(t, int(unsafe.Sizeof(Event{})), Size())
}

func TestMarshalRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 123456000)
	ev := New(ts, Abs, AbsMtTrackingId, -1)

	b, err := ev.Marshal()
	require.NoError(t, err)
	require.Len(t, b, Size())

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	assert.EqualValues(t, 1700000000, got.Time.Sec)
	assert.EqualValues(t, 123456, got.Time.Usec)
	assert.Equal(t, int32(-1), got.Value)
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "ABS_MT_TRACKING_ID", Name(Abs, AbsMtTrackingId))
	assert.Equal(t, "BTN_TOUCH", Name(Key, BtnTouch))
	assert.Equal(t, "SYN_REPORT", Name(Syn, SynReport))
	assert.Equal(t, "ABS_X", Name(Abs, AbsX))
	assert.Equal(t, "UNKNOWN", Name(Abs, 0x7f))
}
