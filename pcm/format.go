// Package pcm describes raw audio sample layouts. A Format is parsed from the
// compact "rate:bits:channels" notation used in source URIs and configuration
// (for example "48000:16:2") and answers byte-layout questions for the capture
// path: frame size and time-to-size conversion.
package pcm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360/audiostreams/errors"
)

// SampleFormat identifies the binary encoding of one sample.
type SampleFormat int

const (
	// SampleS8 is signed 8-bit.
	SampleS8 SampleFormat = iota
	// SampleS16 is signed 16-bit little-endian.
	SampleS16
	// SampleS24 is signed 24-bit padded to 32 bits.
	SampleS24
	// SampleS32 is signed 32-bit little-endian.
	SampleS32
	// SampleFloat32 is 32-bit IEEE float.
	SampleFloat32
)

// String returns the token used in format strings for this sample format.
func (s SampleFormat) String() string {
	switch s {
	case SampleS8:
		return "8"
	case SampleS16:
		return "16"
	case SampleS24:
		return "24"
	case SampleS32:
		return "32"
	case SampleFloat32:
		return "f"
	default:
		return "unknown"
	}
}

// SampleSize returns the storage size of one sample in bytes.
func (s SampleFormat) SampleSize() int {
	switch s {
	case SampleS8:
		return 1
	case SampleS16:
		return 2
	case SampleS24, SampleS32, SampleFloat32:
		return 4
	default:
		return 0
	}
}

// Format describes an interleaved PCM stream.
type Format struct {
	SampleRate int
	Sample     SampleFormat
	Channels   int
}

const (
	minSampleRate = 1000
	maxSampleRate = 768000
	maxChannels   = 8
)

// ParseFormat decodes a "rate:bits:channels" format string. The bits token is
// one of 8, 16, 24, 32 or "f" for 32-bit float.
func ParseFormat(s string) (Format, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Format{}, errors.WrapInvalid(
			fmt.Errorf("%w: expected rate:bits:channels, got %q", errors.ErrInvalidSpec, s),
			"pcm", "ParseFormat", "format string split")
	}

	rate, err := strconv.Atoi(parts[0])
	if err != nil || rate < minSampleRate || rate > maxSampleRate {
		return Format{}, errors.WrapInvalid(
			fmt.Errorf("%w: bad sample rate %q", errors.ErrInvalidSpec, parts[0]),
			"pcm", "ParseFormat", "sample rate parsing")
	}

	var sample SampleFormat
	switch parts[1] {
	case "8":
		sample = SampleS8
	case "16":
		sample = SampleS16
	case "24":
		sample = SampleS24
	case "32":
		sample = SampleS32
	case "f":
		sample = SampleFloat32
	default:
		return Format{}, errors.WrapInvalid(
			fmt.Errorf("%w: bad sample format %q", errors.ErrInvalidSpec, parts[1]),
			"pcm", "ParseFormat", "sample format parsing")
	}

	channels, err := strconv.Atoi(parts[2])
	if err != nil || channels < 1 || channels > maxChannels {
		return Format{}, errors.WrapInvalid(
			fmt.Errorf("%w: bad channel count %q", errors.ErrInvalidSpec, parts[2]),
			"pcm", "ParseFormat", "channel count parsing")
	}

	return Format{SampleRate: rate, Sample: sample, Channels: channels}, nil
}

// Valid reports whether the format describes a usable stream.
func (f Format) Valid() bool {
	return f.SampleRate >= minSampleRate && f.SampleRate <= maxSampleRate &&
		f.Channels >= 1 && f.Channels <= maxChannels &&
		f.Sample.SampleSize() > 0
}

// FrameSize returns the size in bytes of one frame (one sample per channel).
// The byte layout is immutable once a device handle has been negotiated.
func (f Format) FrameSize() int {
	return f.Sample.SampleSize() * f.Channels
}

// TimeToSize converts a duration into a byte count, rounded down to whole
// frames.
func (f Format) TimeToSize(d time.Duration) int {
	frames := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	return frames * f.FrameSize()
}

// String formats f in the same notation accepted by ParseFormat.
func (f Format) String() string {
	return fmt.Sprintf("%d:%s:%d", f.SampleRate, f.Sample, f.Channels)
}
