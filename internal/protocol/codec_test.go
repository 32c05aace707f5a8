package protocol

import (
	"math"
	"strings"
	"testing"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Encode/Decode round-trips a small message unchanged, and stays under
// the compression threshold so it takes the raw path.
func TestCodecRoundTripRaw(t *testing.T) {
	c := Codec{Threshold: 1 << 20}
	want := RequestBlock{ClientID: NewClientID(), Region: voxel.BlockPosition{X: 1, Y: -2, Z: 3}, LOD: 2}

	frame, err := c.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, flagRaw, frame[0])

	got, err := c.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// A payload over threshold takes the snappy path and still round-trips.
func TestCodecRoundTripCompressed(t *testing.T) {
	c := Codec{Threshold: 16}

	var updates []VoxelUpdate
	for i := int32(0); i < 64; i++ {
		updates = append(updates, VoxelUpdate{
			Bounds: voxel.Bounds{X: i, LgSize: 0},
			Voxel:  voxel.Voxel{Density: float32(i), Material: int16(i % 4)},
		})
	}
	want := Voxels{Voxels: updates, Reason: ReasonBrush}

	frame, err := c.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, flagSnappy, frame[0])

	got, err := c.Decode(frame)
	require.NoError(t, err)
	gotVoxels, ok := got.(Voxels)
	require.True(t, ok)
	assert.Equal(t, want.Reason, gotVoxels.Reason)
	assert.Equal(t, want.Voxels, gotVoxels.Voxels)
}

func TestCodecDecodeEmptyFrame(t *testing.T) {
	c := Codec{}
	_, err := c.Decode(nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty frame"))
}

// NewPipe's two ends are connected: a write on one side arrives as a
// Success read on the other, carrying the exact bytes written.
func TestPipeSocketDeliversFrames(t *testing.T) {
	a, b := NewPipe()
	c := Codec{}

	msg := Ping{ClientID: NewClientID()}
	frame, err := c.Encode(msg)
	require.NoError(t, err)
	a.Write(frame)

	result := b.TryRead()
	require.Equal(t, Success, result.Status)

	decoded, err := c.Decode(result.Data)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

// Fraction 0.25 is noon: angle pi/2, sun direction straight up,
// ambient at its midday value of sin/2 = 0.5.
func TestUpdateSunFraction(t *testing.T) {
	angle := SunAngle(0.25)
	assert.InDelta(t, math.Pi/2, angle, 1e-6)

	dir := mgl32.Vec3{float32(math.Cos(float64(angle))), float32(math.Sin(float64(angle))), 0}
	assert.InDelta(t, 0, dir.X(), 1e-6)
	assert.InDelta(t, 1, dir.Y(), 1e-6)

	assert.InDelta(t, 0.5, SunAmbient(angle), 1e-6)

	// Midnight (fraction 0.75) clamps to the ambient floor.
	assert.InDelta(t, 0.4, SunAmbient(SunAngle(0.75)), 1e-6)

	color := SunColor(angle)
	assert.InDelta(t, 1, color.Y(), 1e-6, "green channel peaks at noon")
}
