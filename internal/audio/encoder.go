package audio

import (
	"context"

	"go.uber.org/zap"
)

// EncodedAudio - результат кодирования: данные и расширение файла.
type EncodedAudio struct {
	Data []byte
	Ext  string
}

// Encoder превращает сырое PCM в воспроизводимый формат.
// Если транскодер недоступен или упал, пишем несжатый WAV: ассет должен
// получиться всегда, когда есть сырое аудио.
type Encoder struct {
	transcoder Transcoder
	logger     *zap.Logger
}

// NewEncoder создает кодировщик поверх транскодера.
func NewEncoder(transcoder Transcoder, logger *zap.Logger) *Encoder {
	return &Encoder{
		transcoder: transcoder,
		logger:     logger.Named("AudioEncoder"),
	}
}

// Encode кодирует PCM в MP3, при недоступности ffmpeg - в WAV.
func (e *Encoder) Encode(ctx context.Context, pcmData []byte, sampleRate int) EncodedAudio {
	if e.transcoder != nil && e.transcoder.Available() {
		mp3Data, err := e.transcoder.TranscodePCMToMP3(ctx, pcmData, sampleRate)
		if err == nil {
			return EncodedAudio{Data: mp3Data, Ext: ".mp3"}
		}
		e.logger.Warn("Transcoding to MP3 failed, falling back to WAV", zap.Error(err))
	}
	return EncodedAudio{Data: EncodeWAV(pcmData, sampleRate), Ext: ".wav"}
}
