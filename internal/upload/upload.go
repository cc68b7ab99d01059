package upload

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxSize caps uploaded images.
const DefaultMaxSize = 5 << 20

var (
	ErrTooLarge        = errors.New("upload: file too large")
	ErrUnsupportedType = errors.New("upload: unsupported image type")
)

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// sniff peeks at r to determine its image type. The returned reader yields
// the full content.
func sniff(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", "", nil, err
	}
	contentType = http.DetectContentType(head)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", "", nil, ErrUnsupportedType
	}
	return contentType, ext, br, nil
}

// storedName returns the object name url carries under base, rejecting
// anything that could address a different path.
func storedName(url, base string) (string, bool) {
	name, ok := strings.CutPrefix(url, base)
	if !ok || name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\?#") {
		return "", false
	}
	return name, true
}

// limit reads at most max bytes from r, failing with ErrTooLarge beyond that.
func limit(r io.Reader, max int64) io.Reader {
	return &limitedReader{r: io.LimitReader(r, max+1), left: max}
}

type limitedReader struct {
	r    io.Reader
	left int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
