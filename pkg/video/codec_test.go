package video

import "testing"

func TestDetectCodec(t *testing.T) {
	cases := map[string]Codec{
		"mpeg1video": CodecMPEG1,
		"mpeg2video": CodecMPEG2,
		"h264":       CodecH264,
		"h264_rkmpp": CodecH264,
		"hevc":       CodecHEVC,
		"theora":     CodecUnknown,
		"av1":        CodecAV1,
		"vp9":        CodecVP9,
		"":           CodecUnknown,
	}
	for name, want := range cases {
		if got := DetectCodec(name); got != want {
			t.Errorf("DetectCodec(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestReencodeHint(t *testing.T) {
	if hint := ReencodeHint("mpeg1video", 480, 90, 30); hint != "" {
		t.Errorf("MPEG-1 needs no hint, got %q", hint)
	}
	want := "ffmpeg -i input -c:v mpeg1video -q:v 4 -s 480x90 -r 25 -an -f mpeg video.mpg"
	if hint := ReencodeHint("h264", 480, 90, 25); hint != want {
		t.Errorf("hint = %q, want %q", hint, want)
	}
	if hint := ReencodeHint("vp9", 64, 64, 0); hint == "" {
		t.Error("expected a hint with the default frame rate")
	}
}
