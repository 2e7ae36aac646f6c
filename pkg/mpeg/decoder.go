package mpeg

/*
#cgo pkg-config: libavformat libavcodec libavutil libswscale

#include <stdlib.h>
#include <stdio.h>
#include <string.h>
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/imgutils.h>
#include <libswscale/swscale.h>
#include <libavutil/log.h>

typedef struct {
    AVFormatContext *formatCtx;
    AVCodecContext  *codecCtx;
    AVPacket        *packet;
    AVFrame         *frame;
    AVFrame         *frameYUV;   // only used when the codec output is not yuv420p
    AVFrame         *out;        // frame handed to Go
    struct SwsContext *swsCtx;
    int             videoStream;
    int             draining;
} Decoder;

static int open_codec(Decoder *d, const AVCodec *codec, AVCodecParameters *par) {
    AVCodecContext *ctx = avcodec_alloc_context3(codec);
    if (!ctx) {
        return -1;
    }
    avcodec_parameters_to_context(ctx, par);
    ctx->thread_type = FF_THREAD_FRAME;
    ctx->thread_count = 0;
    if (avcodec_open2(ctx, codec, NULL) < 0) {
        avcodec_free_context(&ctx);
        return -1;
    }
    d->codecCtx = ctx;
    return 0;
}

// init_decoder opens filename and its first video stream. preferred may name a
// decoder (e.g. "h264_rkmpp"); it is used only when it matches the stream codec.
int init_decoder(const char *filename, const char *preferred, Decoder *d) {
    av_log_set_level(AV_LOG_ERROR);
    memset(d, 0, sizeof(*d));
    d->videoStream = -1;

    if (avformat_open_input(&d->formatCtx, filename, NULL, NULL) != 0) {
        return -1;
    }
    if (avformat_find_stream_info(d->formatCtx, NULL) < 0) {
        return -2;
    }

    for (unsigned int i = 0; i < d->formatCtx->nb_streams; i++) {
        if (d->formatCtx->streams[i]->codecpar->codec_type == AVMEDIA_TYPE_VIDEO) {
            d->videoStream = (int)i;
            break;
        }
    }
    if (d->videoStream == -1) {
        return -3;
    }

    AVCodecParameters *par = d->formatCtx->streams[d->videoStream]->codecpar;

    if (preferred && preferred[0] != '\0') {
        const AVCodec *candidate = avcodec_find_decoder_by_name(preferred);
        if (!candidate) {
            fprintf(stderr, "Decoder '%s' not found, using default\n", preferred);
        } else if (candidate->id != par->codec_id) {
            fprintf(stderr, "Decoder '%s' does not match stream codec %d, using default\n", preferred, par->codec_id);
        } else if (open_codec(d, candidate, par) != 0) {
            fprintf(stderr, "Failed to open decoder '%s', using default\n", preferred);
        }
    }

    if (!d->codecCtx) {
        const AVCodec *codec = avcodec_find_decoder(par->codec_id);
        if (!codec || open_codec(d, codec, par) != 0) {
            return -4;
        }
    }

    d->packet = av_packet_alloc();
    d->frame = av_frame_alloc();
    if (!d->packet || !d->frame) {
        return -5;
    }

    int width = d->codecCtx->width;
    int height = d->codecCtx->height;
    if (d->codecCtx->pix_fmt == AV_PIX_FMT_YUV420P || d->codecCtx->pix_fmt == AV_PIX_FMT_YUVJ420P) {
        d->out = d->frame;
        return 0;
    }

    d->frameYUV = av_frame_alloc();
    if (!d->frameYUV) {
        return -5;
    }
    d->frameYUV->format = AV_PIX_FMT_YUV420P;
    d->frameYUV->width = width;
    d->frameYUV->height = height;
    if (av_frame_get_buffer(d->frameYUV, 0) < 0) {
        return -5;
    }
    d->swsCtx = sws_getContext(width, height, d->codecCtx->pix_fmt,
                               width, height, AV_PIX_FMT_YUV420P,
                               SWS_BILINEAR, NULL, NULL, NULL);
    if (!d->swsCtx) {
        return -6;
    }
    // yuvj* sources are flagged full range by swscale itself; others only
    // through the stream's colour range. Output is always studio swing.
    if (d->codecCtx->color_range == AVCOL_RANGE_JPEG) {
        int *inv_table, *table;
        int src_range, dst_range, brightness, contrast, saturation;
        if (sws_getColorspaceDetails(d->swsCtx, &inv_table, &src_range, &table, &dst_range,
                                     &brightness, &contrast, &saturation) >= 0) {
            sws_setColorspaceDetails(d->swsCtx, inv_table, 1, table, 0,
                                     brightness, contrast, saturation);
        }
    }
    d->out = d->frameYUV;
    return 0;
}

// out_full_range reports whether d->out holds full range (JPEG) samples.
// Frames passed through without swscale keep the decoder's range.
int out_full_range(Decoder *d) {
    if (d->swsCtx) {
        return 0;
    }
    return d->codecCtx->pix_fmt == AV_PIX_FMT_YUVJ420P ||
           d->frame->color_range == AVCOL_RANGE_JPEG;
}

// set_audio_discard drops (or keeps) every non-video stream at the demuxer.
void set_audio_discard(Decoder *d, int discard) {
    for (unsigned int i = 0; i < d->formatCtx->nb_streams; i++) {
        if ((int)i == d->videoStream) {
            continue;
        }
        if (d->formatCtx->streams[i]->codecpar->codec_type == AVMEDIA_TYPE_AUDIO) {
            d->formatCtx->streams[i]->discard = discard ? AVDISCARD_ALL : AVDISCARD_DEFAULT;
        }
    }
}

// decode_frame returns 1 when d->out holds a new frame, 0 at end of stream,
// -1 when a packet was rejected and -2 on a decoder failure.
int decode_frame(Decoder *d) {
    for (;;) {
        int ret = avcodec_receive_frame(d->codecCtx, d->frame);
        if (ret == 0) {
            if (d->swsCtx) {
                sws_scale(d->swsCtx,
                          (const uint8_t * const*)d->frame->data, d->frame->linesize,
                          0, d->codecCtx->height,
                          d->frameYUV->data, d->frameYUV->linesize);
            }
            return 1;
        }
        if (ret == AVERROR_EOF) {
            return 0;
        }
        if (ret != AVERROR(EAGAIN)) {
            return -2;
        }
        if (d->draining) {
            return 0;
        }

        if (av_read_frame(d->formatCtx, d->packet) < 0) {
            // Flush frames still buffered in the codec.
            avcodec_send_packet(d->codecCtx, NULL);
            d->draining = 1;
            continue;
        }
        if (d->packet->stream_index != d->videoStream) {
            av_packet_unref(d->packet);
            continue;
        }
        ret = avcodec_send_packet(d->codecCtx, d->packet);
        av_packet_unref(d->packet);
        if (ret < 0 && ret != AVERROR(EAGAIN)) {
            return -1;
        }
    }
}

int rewind_decoder(Decoder *d) {
    int ret = av_seek_frame(d->formatCtx, d->videoStream, 0, AVSEEK_FLAG_BACKWARD);
    if (ret < 0) {
        ret = avformat_seek_file(d->formatCtx, -1, INT64_MIN, 0, 0, 0);
    }
    avcodec_flush_buffers(d->codecCtx);
    d->draining = 0;
    return ret < 0 ? ret : 0;
}

void close_decoder(Decoder *d) {
    if (!d) return;
    if (d->swsCtx) {
        sws_freeContext(d->swsCtx);
        d->swsCtx = NULL;
    }
    av_frame_free(&d->frameYUV);
    av_frame_free(&d->frame);
    av_packet_free(&d->packet);
    avcodec_free_context(&d->codecCtx);
    if (d->formatCtx) {
        avformat_close_input(&d->formatCtx);
    }
    d->out = NULL;
}

double getDecoderFPS(Decoder *d) {
    if (!d || d->videoStream < 0) {
        return 0;
    }
    AVStream *st = d->formatCtx->streams[d->videoStream];
    AVRational r = av_guess_frame_rate(d->formatCtx, st, NULL);
    if (r.den == 0) {
        return 0;
    }
    return av_q2d(r);
}

const char *getDecoderName(Decoder *d) {
    if (!d || !d->codecCtx || !d->codecCtx->codec) {
        return "unknown";
    }
    return d->codecCtx->codec->name;
}
*/
import "C"

import (
	"image"
	"io"
	"log"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"loop-frame/pkg/video"
)

// CodecInfo describes the opened video stream.
type CodecInfo struct {
	Name   string
	Width  int
	Height int
	FPS    float64
}

// Decoder is an ffmpeg-backed video.Source producing YUV 4:2:0 frames.
// Frames returned by NextFrame share one image whose planes are overwritten
// on the next call.
type Decoder struct {
	cdec   C.Decoder
	path   string
	width  int
	height int
	fps    float64
	img    *image.YCbCr
	frame  video.Frame

	closeOnce sync.Once
}

// NewDecoder opens path. preferred names an ffmpeg decoder to try first and
// may be empty.
func NewDecoder(path, preferred string) (*Decoder, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cPreferred := C.CString(preferred)
	defer C.free(unsafe.Pointer(cPreferred))

	d := &Decoder{path: path}
	if ret := C.init_decoder(cPath, cPreferred, &d.cdec); ret != 0 {
		C.close_decoder(&d.cdec)
		return nil, errors.Errorf("init_decoder %s failed (code=%d)", path, int(ret))
	}

	d.width = int(d.cdec.codecCtx.width)
	d.height = int(d.cdec.codecCtx.height)
	if d.width <= 0 || d.height <= 0 {
		C.close_decoder(&d.cdec)
		return nil, errors.Errorf("invalid video dimensions %dx%d in %s", d.width, d.height, path)
	}

	d.fps = float64(C.getDecoderFPS(&d.cdec))
	if d.fps <= 0 {
		d.fps = 30 // sensible default if not available
	}

	d.img = image.NewYCbCr(image.Rect(0, 0, d.width, d.height), image.YCbCrSubsampleRatio420)
	d.frame.Image = d.img
	return d, nil
}

// Info returns the codec details of the opened stream.
func (d *Decoder) Info() CodecInfo {
	return CodecInfo{
		Name:   C.GoString(C.getDecoderName(&d.cdec)),
		Width:  d.width,
		Height: d.height,
		FPS:    d.fps,
	}
}

func (d *Decoder) Width() int         { return d.width }
func (d *Decoder) Height() int        { return d.height }
func (d *Decoder) FrameRate() float64 { return d.fps }

// SetAudioEnabled toggles demuxer-level discarding of audio packets.
func (d *Decoder) SetAudioEnabled(enabled bool) {
	discard := C.int(1)
	if enabled {
		discard = 0
	}
	C.set_audio_discard(&d.cdec, discard)
}

// NextFrame decodes the next picture. It returns io.EOF at end of stream.
func (d *Decoder) NextFrame() (*video.Frame, error) {
	ret := C.decode_frame(&d.cdec)
	switch {
	case ret == 0:
		return nil, io.EOF
	case ret < 0:
		return nil, errors.Errorf("decode error (code=%d)", int(ret))
	}

	out := d.cdec.out
	copyPlane(d.img.Y, d.img.YStride, out.data[0], int(out.linesize[0]), d.width, d.height)
	cw, ch := (d.width+1)/2, (d.height+1)/2
	copyPlane(d.img.Cb, d.img.CStride, out.data[1], int(out.linesize[1]), cw, ch)
	copyPlane(d.img.Cr, d.img.CStride, out.data[2], int(out.linesize[2]), cw, ch)
	d.frame.FullRange = C.out_full_range(&d.cdec) != 0

	return &d.frame, nil
}

// copyPlane copies rows of width bytes from a C plane with its own line size.
func copyPlane(dst []byte, dstStride int, src *C.uint8_t, srcStride, width, rows int) {
	if src == nil || srcStride <= 0 {
		return
	}
	plane := unsafe.Slice((*byte)(unsafe.Pointer(src)), srcStride*rows)
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+width], plane[y*srcStride:y*srcStride+width])
	}
}

// Rewind seeks back to the first frame and resets the codec.
func (d *Decoder) Rewind() error {
	if ret := C.rewind_decoder(&d.cdec); ret != 0 {
		return errors.Errorf("seek to start of %s failed (code=%d)", d.path, int(ret))
	}
	return nil
}

// Close frees all ffmpeg resources.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		C.close_decoder(&d.cdec)
	})
	return nil
}

// Open creates a decoding engine for the file at path.
func Open(path, preferredDecoder string, opts ...video.Option) (*video.Engine, error) {
	dec, err := NewDecoder(path, preferredDecoder)
	if err != nil {
		return nil, err
	}

	info := dec.Info()
	log.Printf("Open: %s | Codec: %s | %dx%d @ %.1ffps", path, info.Name, info.Width, info.Height, info.FPS)
	if hint := video.ReencodeHint(info.Name, info.Width, info.Height, info.FPS); hint != "" {
		log.Printf("Open: %s is expensive to decode in software, consider: %s", video.DetectCodec(info.Name), hint)
	}

	return video.NewEngine(dec, opts...), nil
}
