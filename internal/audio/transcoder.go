package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// Transcoder сжимает сырое PCM в формат для хранения и воспроизведения.
type Transcoder interface {
	// TranscodePCMToMP3 принимает 16-битное моно PCM.
	TranscodePCMToMP3(ctx context.Context, pcmData []byte, sampleRate int) ([]byte, error)
	// Available сообщает, доступен ли транскодер в этом окружении.
	Available() bool
}

// ffmpegTranscoder вызывает внешний ffmpeg через пайпы.
type ffmpegTranscoder struct {
	ffmpegPath string
	available  bool
	logger     *zap.Logger
}

var _ Transcoder = (*ffmpegTranscoder)(nil)

// NewFFmpegTranscoder проверяет наличие бинарника ffmpeg и создает транскодер.
func NewFFmpegTranscoder(ffmpegPath string, logger *zap.Logger) Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	_, err := exec.LookPath(ffmpegPath)
	if err != nil {
		logger.Warn("ffmpeg not found, audio will be stored as WAV",
			zap.String("path", ffmpegPath), zap.Error(err))
	}
	return &ffmpegTranscoder{
		ffmpegPath: ffmpegPath,
		available:  err == nil,
		logger:     logger.Named("FFmpeg"),
	}
}

func (t *ffmpegTranscoder) Available() bool {
	return t.available
}

func (t *ffmpegTranscoder) TranscodePCMToMP3(ctx context.Context, pcmData []byte, sampleRate int) ([]byte, error) {
	if !t.available {
		return nil, fmt.Errorf("ffmpeg is not available")
	}
	if len(pcmData) == 0 {
		return nil, fmt.Errorf("empty pcm data")
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-f", "mp3",
		"-b:a", "128k",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(pcmData)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.logger.Error("ffmpeg transcoding failed",
			zap.Error(err), zap.String("stderr", stderr.String()))
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	mp3Data := stdout.Bytes()
	if len(mp3Data) == 0 {
		return nil, fmt.Errorf("ffmpeg produced empty output")
	}

	t.logger.Debug("PCM transcoded to MP3",
		zap.Int("pcm_bytes", len(pcmData)), zap.Int("mp3_bytes", len(mp3Data)))
	return mp3Data, nil
}

// EncodeWAV оборачивает 16-битное моно PCM в RIFF-контейнер.
// Используется как fallback-формат, когда транскодер недоступен.
func EncodeWAV(pcmData []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcmData)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)

	return buf.Bytes()
}
