// Package decompress unwraps compressed captures before they are parsed.
//
// Captured protobuf payloads are often stored gzip, zlib, zstd or snappy
// framed. Auto detection looks at magic numbers only; brotli streams carry
// none and must be requested explicitly.
package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// Format names a container format.
type Format string

const (
	Auto   Format = "auto"
	None   Format = "none"
	Raw    Format = "raw"
	Gzip   Format = "gzip"
	Zlib   Format = "zlib"
	Zstd   Format = "zstd"
	Snappy Format = "snappy"
	Brotli Format = "brotli"
)

// DefaultMaxSize caps decompressed output.
const DefaultMaxSize = 512 << 20

var (
	// ErrTooLarge is returned when decompressed output exceeds MaxSize.
	ErrTooLarge = errors.New("decompress: output exceeds size limit")

	// ErrUnknownFormat is returned for a Format this package cannot decode.
	ErrUnknownFormat = errors.New("decompress: unknown format")
)

var (
	gzipMagic      = []byte{0x1f, 0x8b}
	zstdMagic      = []byte{0x28, 0xb5, 0x2f, 0xfd}
	snappyStreamID = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
	s2StreamID     = []byte{0xff, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
)

// Unwrapper decodes compressed input.
type Unwrapper struct {
	MaxSize int64
	Logger  zerolog.Logger
}

// New returns an Unwrapper with the default size cap and no logging.
func New() *Unwrapper {
	return &Unwrapper{
		MaxSize: DefaultMaxSize,
		Logger:  zerolog.Nop(),
	}
}

// Unwrap decodes data with the default Unwrapper.
func Unwrap(data []byte, format Format) ([]byte, Format, error) {
	return New().Unwrap(data, format)
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return Auto, nil
	case Auto, None, Gzip, Zlib, Zstd, Snappy, Brotli:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Detect reports the container format of data from its leading bytes.
// It returns Raw when nothing is recognised.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, snappyStreamID), bytes.HasPrefix(data, s2StreamID):
		return Snappy
	case isZlibHeader(data):
		return Zlib
	}
	return Raw
}

// isZlibHeader checks the RFC 1950 CMF/FLG pair. Only the 32K window
// (CMF 0x78) is accepted; smaller windows collide with common protobuf tags.
func isZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf != 0x78 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Unwrap returns the decoded contents of data and the format it was decoded
// from.
//
// With Auto, a sniffed format that fails to decode, or that decodes past
// MaxSize, falls back to the raw input and Raw. With an explicit format,
// decode failures are errors.
func (u *Unwrapper) Unwrap(data []byte, format Format) ([]byte, Format, error) {
	switch format {
	case None, Raw:
		return data, Raw, nil
	case Auto, "":
		detected := Detect(data)
		if detected == Raw {
			return data, Raw, nil
		}
		out, err := u.decode(data, detected)
		if err != nil {
			u.Logger.Debug().Err(err).Str("format", string(detected)).Msg("sniffed format did not decode, using raw bytes")
			return data, Raw, nil
		}
		return out, detected, nil
	default:
		out, err := u.decode(data, format)
		if err != nil {
			return nil, format, fmt.Errorf("%s: %w", format, err)
		}
		return out, format, nil
	}
}

func (u *Unwrapper) decode(data []byte, format Format) ([]byte, error) {
	src := bytes.NewReader(data)
	switch format {
	case Gzip:
		gr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return u.readAll(gr)
	case Zlib:
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return u.readAll(zr)
	case Zstd:
		zr, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return u.readAll(zr)
	case Snappy:
		return u.readAll(s2.NewReader(src))
	case Brotli:
		return u.readAll(brotli.NewReader(src))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (u *Unwrapper) readAll(r io.Reader) ([]byte, error) {
	max := u.MaxSize
	if max <= 0 {
		max = DefaultMaxSize
	}
	out, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > max {
		return nil, ErrTooLarge
	}
	return out, nil
}
