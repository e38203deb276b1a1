package sd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/logger"
)

func testGenerateClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.SDConfig{Enabled: true, URL: server.URL}
	return NewClient(server.Client(), cfg, logger.NewTestLogger())
}

func imagesResponse(images ...string) string {
	raw, _ := json.Marshal(map[string][]string{"images": images})
	return string(raw)
}

func TestGenerate(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	encoded := base64.StdEncoding.EncodeToString(png)

	t.Run("BareBase64", func(t *testing.T) {
		client := testGenerateClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/sdapi/v1/png-info" {
				w.Write([]byte(`{"info":"steps: 20"}`))
				return
			}
			assert.Equal(t, "/sdapi/v1/txt2img", r.URL.Path)
			w.Write([]byte(imagesResponse(encoded)))
		})

		image, err := client.Generate(context.Background(), map[string]any{"prompt": "1girl"})
		require.NoError(t, err)
		assert.Equal(t, png, image)
	})

	t.Run("DataURIPrefix", func(t *testing.T) {
		client := testGenerateClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/sdapi/v1/png-info" {
				w.Write([]byte(`{"info":""}`))
				return
			}
			w.Write([]byte(imagesResponse("data:image/png;base64," + encoded)))
		})

		image, err := client.Generate(context.Background(), map[string]any{"prompt": "1girl"})
		require.NoError(t, err)
		assert.Equal(t, png, image)
	})

	t.Run("NoImages", func(t *testing.T) {
		client := testGenerateClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(imagesResponse()))
		})

		_, err := client.Generate(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("BackendError", func(t *testing.T) {
		client := testGenerateClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "out of memory", http.StatusInternalServerError)
		})

		_, err := client.Generate(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprint(http.StatusInternalServerError))
	})
}
