package video

import (
	"fmt"
	"strings"
)

// Codec is the family of a stream's codec
type Codec int

const (
	CodecUnknown Codec = iota
	CodecMPEG1
	CodecMPEG2
	CodecMPEG4
	CodecH264
	CodecHEVC
	CodecVP8
	CodecVP9
	CodecAV1
)

// DetectCodec determines the codec family from an ffmpeg codec or decoder name
func DetectCodec(name string) Codec {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "h264"), strings.Contains(lower, "avc"):
		return CodecH264
	case strings.Contains(lower, "h265"), strings.Contains(lower, "hevc"):
		return CodecHEVC
	case strings.Contains(lower, "mpeg1"):
		return CodecMPEG1
	case strings.Contains(lower, "mpeg2"):
		return CodecMPEG2
	case strings.Contains(lower, "mpeg4"):
		return CodecMPEG4
	case strings.Contains(lower, "vp8"):
		return CodecVP8
	case strings.Contains(lower, "vp9"):
		return CodecVP9
	case strings.Contains(lower, "av1"):
		return CodecAV1
	default:
		return CodecUnknown
	}
}

func (c Codec) String() string {
	switch c {
	case CodecMPEG1:
		return "MPEG-1"
	case CodecMPEG2:
		return "MPEG-2"
	case CodecMPEG4:
		return "MPEG-4"
	case CodecH264:
		return "H.264/AVC"
	case CodecHEVC:
		return "H.265/HEVC"
	case CodecVP8:
		return "VP8"
	case CodecVP9:
		return "VP9"
	case CodecAV1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// LightweightDecode reports whether software decoding is cheap enough to
// keep up on a handheld CPU.
func (c Codec) LightweightDecode() bool {
	return c == CodecMPEG1 || c == CodecMPEG2
}

// ReencodeHint returns an ffmpeg command that converts the source to MPEG-1
// without audio at the same size, or "" when the codec is already cheap to
// decode. Audio is dropped because it is never played.
func ReencodeHint(codecName string, width, height int, fps float64) string {
	if DetectCodec(codecName).LightweightDecode() {
		return ""
	}
	if fps <= 0 {
		fps = defaultFrameRate
	}
	return fmt.Sprintf(
		"ffmpeg -i input -c:v mpeg1video -q:v 4 -s %dx%d -r %.0f -an -f mpeg video.mpg",
		width, height, fps)
}
