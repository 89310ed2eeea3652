package commands

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// loadAudioFile reads 16 kHz mono samples from path. The extension picks
// the encoding:
//
//	.pcm .s16   signed 16-bit little-endian PCM
//	.b64        base64 text of float32 little-endian samples
//	other       raw float32 little-endian samples
func loadAudioFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	var samples []float32
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".s16":
		samples, err = voiceprint.DecodePCM16LE(data)
	case ".b64":
		raw, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if derr != nil {
			return nil, fmt.Errorf("%w: %s: %v", voiceprint.ErrInvalidAudio, path, derr)
		}
		samples, err = voiceprint.DecodeFloat32LE(raw)
	default:
		samples, err = voiceprint.DecodeFloat32LE(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
