package blob

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestSaveImage(t *testing.T) {
	s, err := New(t.TempDir(), "http://localhost:3000/")
	require.NoError(t, err)

	url, err := s.Save(bytes.NewReader(pngHead), KindImage, int64(len(pngHead)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:3000/uploads/"))
	require.True(t, strings.HasSuffix(url, ".png"))
}

func TestSaveVoiceExtension(t *testing.T) {
	s, err := New(t.TempDir(), "http://x")
	require.NoError(t, err)

	url, err := s.Save(bytes.NewReader([]byte("opusdata-opaque")), KindVoice, 15)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(url, ".webm"))
}

func TestSaveRejectsOversize(t *testing.T) {
	s, err := New(t.TempDir(), "http://x")
	require.NoError(t, err)

	// 声明尺寸超限直接拒绝，不落盘
	_, err = s.Save(bytes.NewReader(nil), KindVoice, MaxVoiceBytes+1)
	require.Error(t, err)
	_, err = s.Save(bytes.NewReader(nil), KindImage, MaxImageBytes+1)
	require.Error(t, err)
}
