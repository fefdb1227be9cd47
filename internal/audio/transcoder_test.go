package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTranscoder struct {
	available bool
	data      []byte
	err       error
}

func (s *stubTranscoder) TranscodePCMToMP3(ctx context.Context, pcmData []byte, sampleRate int) ([]byte, error) {
	return s.data, s.err
}

func (s *stubTranscoder) Available() bool {
	return s.available
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := EncodeWAV(pcm, 24000)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]), "PCM format")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]), "mono")
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]), "bits per sample")
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestEncoder_UsesMP3WhenTranscoderWorks(t *testing.T) {
	enc := NewEncoder(&stubTranscoder{available: true, data: []byte("mp3")}, zap.NewNop())

	out := enc.Encode(context.Background(), []byte{1, 2}, 24000)
	assert.Equal(t, ".mp3", out.Ext)
	assert.Equal(t, []byte("mp3"), out.Data)
}

func TestEncoder_FallsBackToWAVWhenUnavailable(t *testing.T) {
	enc := NewEncoder(&stubTranscoder{available: false}, zap.NewNop())

	out := enc.Encode(context.Background(), []byte{1, 2}, 24000)
	assert.Equal(t, ".wav", out.Ext)
	assert.Equal(t, "RIFF", string(out.Data[0:4]))
}

func TestEncoder_FallsBackToWAVOnTranscodeError(t *testing.T) {
	enc := NewEncoder(&stubTranscoder{available: true, err: errors.New("boom")}, zap.NewNop())

	out := enc.Encode(context.Background(), []byte{1, 2}, 24000)
	assert.Equal(t, ".wav", out.Ext)
}
