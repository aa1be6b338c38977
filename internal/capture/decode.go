package capture

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"log/slog"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// maxDecodedBody caps decompressed bodies.
const maxDecodedBody = 64 << 20

// decodeContent reverses a Content-Encoding. Bodies that cannot be decoded are
// dropped (nil): an undecodable body counts as no body, not as an error.
func decodeContent(raw []byte, encoding string) []byte {
	if len(raw) == 0 {
		return nil
	}

	enc := strings.ToLower(strings.TrimSpace(encoding))
	switch enc {
	case "", "identity", "none":
		return raw
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return dropBody(enc, err)
		}
		defer zr.Close()
		return readDecoded(zr, enc)
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			if out := readDecoded(zr, enc); out != nil {
				return out
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return readDecoded(fr, enc)
	case "br":
		return readDecoded(brotli.NewReader(bytes.NewReader(raw)), enc)
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(raw),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedBody),
		)
		if err != nil {
			return dropBody(enc, err)
		}
		defer zr.Close()
		return readDecoded(zr, enc)
	default:
		slog.Debug("unsupported content encoding, dropping body",
			slog.String("encoding", enc),
		)
		return nil
	}
}

func readDecoded(r io.Reader, enc string) []byte {
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedBody))
	if err != nil {
		return dropBody(enc, err)
	}
	return out
}

func dropBody(enc string, err error) []byte {
	slog.Debug("failed to decode body, dropping it",
		slog.String("encoding", enc),
		slog.String("error", err.Error()),
	)
	return nil
}
