package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

const resampleQuality = 4

var ErrUnknownFormat = errors.New("unrecognised audio format")

// Kind reports the container detected from the leading bytes of data.
func Kind(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return "flac"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

// Decode turns encoded bytes into a Buffer in the context's format,
// resampling when the source rate differs.
func (c *Context) Decode(id string, data []byte) (*Buffer, error) {
	stream, format, err := openStream(data)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != c.format.SampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, c.format.SampleRate, stream)
	}

	pcm := beep.NewBuffer(c.format)
	pcm.Append(src)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", id, err)
	}
	if pcm.Len() == 0 {
		return nil, fmt.Errorf("decoding %s: no audio frames", id)
	}
	return &Buffer{ID: id, pcm: pcm}, nil
}

func openStream(data []byte) (beep.StreamCloser, beep.Format, error) {
	switch Kind(data) {
	case "wav":
		s, f, err := wav.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("wav: %w", err)
		}
		return s, f, nil
	case "mp3":
		s, f, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("mp3: %w", err)
		}
		return s, f, nil
	case "flac":
		return openFLAC(data)
	}
	return nil, beep.Format{}, ErrUnknownFormat
}

type flacStream struct {
	stream *flac.Stream
	frame  *frame.Frame
	pos    int
	scale  float64
	err    error
}

func openFLAC(data []byte) (beep.StreamCloser, beep.Format, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("flac: %w", err)
	}
	info := stream.Info
	if info.NChannels == 0 || info.BitsPerSample == 0 {
		stream.Close()
		return nil, beep.Format{}, fmt.Errorf("flac: invalid stream info")
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(info.SampleRate),
		NumChannels: int(info.NChannels),
		Precision:   (int(info.BitsPerSample) + 7) / 8,
	}
	return &flacStream{
		stream: stream,
		scale:  float64(int64(1) << (info.BitsPerSample - 1)),
	}, format, nil
}

func (f *flacStream) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if f.frame == nil || f.pos >= len(f.frame.Subframes[0].Samples) {
			fr, err := f.stream.ParseNext()
			if err != nil {
				if err != io.EOF {
					f.err = err
				}
				break
			}
			if len(fr.Subframes) == 0 {
				continue
			}
			f.frame, f.pos = fr, 0
			continue
		}
		left := float64(f.frame.Subframes[0].Samples[f.pos]) / f.scale
		right := left
		if len(f.frame.Subframes) > 1 {
			right = float64(f.frame.Subframes[1].Samples[f.pos]) / f.scale
		}
		samples[n] = [2]float64{left, right}
		n++
		f.pos++
	}
	return n, n > 0
}

func (f *flacStream) Err() error { return f.err }

func (f *flacStream) Close() error { return f.stream.Close() }
