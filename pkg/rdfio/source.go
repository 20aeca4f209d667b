package rdfio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression is a stream compression chosen by file suffix.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
	CompressionZstd
	CompressionLZ4
)

var suffixes = []struct {
	suffix string
	c      Compression
}{
	{".gz", CompressionGzip},
	{".bz2", CompressionBzip2},
	{".xz", CompressionXZ},
	{".zst", CompressionZstd},
	{".lz4", CompressionLZ4},
}

func (c Compression) String() string {
	for _, s := range suffixes {
		if s.c == c {
			return s.suffix[1:]
		}
	}
	return "none"
}

// CompressionForName returns the compression implied by name's suffix and
// name without that suffix.
func CompressionForName(name string) (string, Compression) {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return name[:len(name)-len(s.suffix)], s.c
		}
	}
	return name, CompressionNone
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Open resolves name to a byte stream: "-" is standard input, an http(s)
// URL is fetched, anything else is a file. The stream is decompressed
// according to the name's suffix.
func Open(ctx context.Context, name string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	switch {
	case name == "-":
		raw = io.NopCloser(os.Stdin)
	case isURL(name):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
		if err != nil {
			return nil, fmt.Errorf("rdfio: open %s: %w", name, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("rdfio: open %s: %w", name, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("rdfio: open %s: %s", name, resp.Status)
		}
		raw = resp.Body
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("rdfio: open: %w", err)
		}
		raw = f
	}

	_, c := CompressionForName(strings.SplitN(name, "?", 2)[0])
	r, err := Decompress(raw, c)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("rdfio: open %s: %w", name, err)
	}
	return r, nil
}

// Decompress wraps r with the decoder for c. Closing the result closes r.
func Decompress(r io.ReadCloser, c Compression) (io.ReadCloser, error) {
	var dec io.Reader
	var closeDec func() error
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		dec, closeDec = zr, zr.Close
	case CompressionBzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, err
		}
		dec, closeDec = br, br.Close
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		dec = xr
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		dec, closeDec = zr, func() error { zr.Close(); return nil }
	case CompressionLZ4:
		dec = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown compression %d", int(c))
	}
	return &stackedReader{Reader: dec, closers: []func() error{closeDec, r.Close}}, nil
}

type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	var first error
	for _, fn := range s.closers {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create opens name for writing: "-" is standard output, anything else is a
// file that is created or truncated. Output is compressed according to the
// name's suffix; level 0 means the codec default.
func Create(name string, level int) (io.WriteCloser, error) {
	var raw io.WriteCloser
	if name == "-" {
		raw = nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(name)
		if err != nil {
			return nil, fmt.Errorf("rdfio: create: %w", err)
		}
		raw = f
	}
	_, c := CompressionForName(name)
	w, err := Compress(raw, c, level)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("rdfio: create %s: %w", name, err)
	}
	return w, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Compress wraps w with the encoder for c. Closing the result flushes the
// encoder and closes w.
func Compress(w io.WriteCloser, c Compression, level int) (io.WriteCloser, error) {
	var enc io.WriteCloser
	switch c {
	case CompressionNone:
		return w, nil
	case CompressionGzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, err
		}
		enc = zw
	case CompressionBzip2:
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return nil, err
		}
		enc = bw
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, err
		}
		enc = xw
	case CompressionZstd:
		opts := []zstd.EOption{}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		zw, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, err
		}
		enc = zw
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		if level > 0 {
			// Level1 is 1<<8, Level9 is 1<<16
			l := lz4.CompressionLevel(1 << (7 + min(level, 9)))
			if err := lw.Apply(lz4.CompressionLevelOption(l)); err != nil {
				return nil, err
			}
		}
		enc = lw
	default:
		return nil, fmt.Errorf("unknown compression %d", int(c))
	}
	return &stackedWriter{Writer: enc, closers: []func() error{enc.Close, w.Close}}, nil
}

type stackedWriter struct {
	io.Writer
	closers []func() error
}

func (s *stackedWriter) Close() error {
	var first error
	for _, fn := range s.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
