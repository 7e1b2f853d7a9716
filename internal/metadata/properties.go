package metadata

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"unicode/utf8"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// imageDimensions decodes only the image header (via image.DecodeConfig,
// registered decoders for jpeg/png/gif/bmp/webp) to recover width, height,
// and format without reading the whole file.
func imageDimensions(path string) (width, height int, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

const textSampleBytes = 8192

// textSample reads a small prefix of path and returns a best-effort
// encoding guess and a count of newlines in the sample.
func textSample(path string) (encoding string, lines int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	buf := make([]byte, textSampleBytes)
	n, readErr := f.Read(buf)
	if readErr != nil && n == 0 {
		return "", 0, readErr
	}
	sample := buf[:n]

	return guessEncoding(sample), bytes.Count(sample, []byte{'\n'}), nil
}

// guessEncoding distinguishes UTF-8 from ASCII and otherwise falls back to
// "unknown", mirroring the original extractor's behavior when a full
// charset-detection library isn't available.
func guessEncoding(sample []byte) string {
	if len(sample) == 0 {
		return "unknown"
	}
	ascii := true
	for _, b := range sample {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return "ascii"
	}
	if utf8.Valid(sample) {
		return "utf-8"
	}
	return "unknown"
}
