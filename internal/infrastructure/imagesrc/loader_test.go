package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoader_Base64AndDataURI(t *testing.T) {
	data := pngBytes(t, 4, 3)
	l := NewLoader(time.Second, zap.NewNop())
	ctx := context.Background()

	tests := map[string]string{
		"raw base64":    base64.StdEncoding.EncodeToString(data),
		"data uri":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		"url-safe":      base64.RawURLEncoding.EncodeToString(data),
		"wrapped lines": "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)[:10] + "\n" + base64.StdEncoding.EncodeToString(data)[10:],
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			img, err := l.Load(ctx, src)
			require.NoError(t, err)
			require.Equal(t, "image/png", img.MIMEType)
			require.Equal(t, data, img.Data)
		})
	}
}

func TestLoader_InvalidInput(t *testing.T) {
	l := NewLoader(time.Second, zap.NewNop())
	ctx := context.Background()

	for name, src := range map[string]string{
		"empty":       "  ",
		"not base64":  "%%%not-base64%%%",
		"not image":   base64.StdEncoding.EncodeToString([]byte("hello world, plain text")),
		"bad datauri": "data:image/png;base64",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.Load(ctx, src)
			var inputErr *entity.InputError
			require.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestLoader_URL(t *testing.T) {
	data := pngBytes(t, 8, 6)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/box.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(time.Second, zap.NewNop())

	img, err := l.Load(context.Background(), srv.URL+"/box.png")
	require.NoError(t, err)
	require.Equal(t, data, img.Data)

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	var inputErr *entity.InputError
	require.ErrorAs(t, err, &inputErr)
	require.Contains(t, inputErr.Reason, "404")
}

func TestLoader_URLTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	l := NewLoader(50*time.Millisecond, zap.NewNop())
	_, err := l.Load(context.Background(), srv.URL)
	var inputErr *entity.InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestDescribe(t *testing.T) {
	img := entity.NewImage(pngBytes(t, 12, 7), "")
	info := Describe(img)
	require.Equal(t, "image/png", info.MIMEType)
	require.Equal(t, 12, info.Width)
	require.Equal(t, 7, info.Height)
	require.Equal(t, len(img.Data), info.Bytes)

	info = Describe(entity.NewImage([]byte{0x89, 'P', 'N', 'G'}, "image/png"))
	require.Zero(t, info.Width)
}
