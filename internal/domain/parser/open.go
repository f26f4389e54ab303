package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// sniffBytes is enough for mimetype to recognize gzip and zstd magic
const sniffBytes = 512

// Compression of a log file
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DetectCompression picks a codec from the file name, then from the leading bytes
func DetectCompression(name string, head []byte) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	}

	mtype := mimetype.Detect(head)
	switch {
	case mtype.Is("application/gzip"):
		return CompressionGzip
	case mtype.Is("application/zstd"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over the decompressed content of path
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.MissingFileError{Path: path, Kind: "log file"}
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}

	rc, err := Decompress(file, path)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &multiCloser{Reader: rc, closers: []func() error{rc.Close, file.Close}}, nil
}

// Decompress wraps r with the codec detected for name. Closing the result
// releases the decoder only.
func Decompress(r io.Reader, name string) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(sniffBytes)

	switch DetectCompression(name, head) {
	case CompressionGzip:
		gzReader, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrapf(err, "gzip %s", name)
		}
		return gzReader, nil
	case CompressionZstd:
		zstdReader, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrapf(err, "zstd %s", name)
		}
		return zstdReader.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}
