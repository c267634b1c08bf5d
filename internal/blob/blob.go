package blob

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// 上传上限：图片 ~20MB，语音 ~5MB
const (
	MaxImageBytes = 20 << 20
	MaxVoiceBytes = 5 << 20
)

// Kind is the caller's type hint for an upload.
type Kind string

const (
	KindImage Kind = "image"
	KindVoice Kind = "voice"
)

// Store writes uploaded binaries to disk and hands back publicly
// resolvable URLs.
type Store struct {
	dir     string
	baseURL string
}

// New ensures the upload directory exists. baseURL is the public
// prefix under which dir is served.
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithMessage(err, "ensure upload directory")
	}
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save streams one upload to disk and returns its URL. Size caps are
// enforced here; oversize uploads fail before anything is written.
func (s *Store) Save(r io.Reader, kind Kind, size int64) (string, error) {
	limit := int64(MaxImageBytes)
	if kind == KindVoice {
		limit = MaxVoiceBytes
	}
	if size > limit {
		return "", errors.Errorf("%s upload of %d bytes exceeds limit %d", kind, size, limit)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", errors.WithMessage(err, "read upload head")
	}
	head = head[:n]
	name := uuid.NewString() + extFor(http.DetectContentType(head), kind)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.WithMessage(err, "create blob file")
	}
	defer f.Close()
	if _, err := f.Write(head); err != nil {
		return "", errors.WithMessage(err, "write blob")
	}
	// +1 让超限可检测
	written, err := io.Copy(f, io.LimitReader(r, limit-int64(n)+1))
	if err != nil {
		return "", errors.WithMessage(err, "write blob")
	}
	if written+int64(n) > limit {
		os.Remove(f.Name())
		return "", errors.Errorf("%s upload exceeds limit %d", kind, limit)
	}
	return s.baseURL + "/uploads/" + name, nil
}

// Dir returns the on-disk directory, for static serving.
func (s *Store) Dir() string {
	return s.dir
}

func extFor(contentType string, kind Kind) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "jpeg"):
		return ".jpg"
	case kind == KindVoice:
		return ".webm"
	default:
		return ".bin"
	}
}
