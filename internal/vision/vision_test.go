package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func labelServer(t *testing.T, labels, objects []string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)
		require.NotEmpty(t, req.Requests[0].Image.Content)
		require.Len(t, req.Requests[0].Features, 2)

		type labelAnnotation struct {
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		}
		type objectAnnotation struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		}

		var la []labelAnnotation
		for _, l := range labels {
			la = append(la, labelAnnotation{Description: l, Score: 0.9})
		}
		var oa []objectAnnotation
		for _, o := range objects {
			oa = append(oa, objectAnnotation{Name: o, Score: 0.9})
		}

		json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{
				{
					"labelAnnotations":           la,
					"localizedObjectAnnotations": oa,
				},
			},
		})
	}))
}

func TestClassify(t *testing.T) {
	img := testJPEG(t, 40, 30)

	tests := []struct {
		name    string
		labels  []string
		objects []string
		want    Result
	}{
		{
			name:   "trash label only",
			labels: []string{"Plastic bag", "Food"},
			want:   Result{TrashDetected: true},
		},
		{
			name:    "receptacle object only",
			labels:  []string{"Metal"},
			objects: []string{"Trash can"},
			want:    Result{ReceptacleDetected: true},
		},
		{
			name:    "both detected",
			labels:  []string{"Litter"},
			objects: []string{"Waste bin"},
			want:    Result{TrashDetected: true, ReceptacleDetected: true},
		},
		{
			name:   "nothing relevant",
			labels: []string{"Dog", "Grass"},
			want:   Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := labelServer(t, tt.labels, tt.objects)
			defer srv.Close()

			client := New(srv.URL, "test-key")
			result, err := client.Classify(context.Background(), img)

			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestClassifyAcceptanceRule(t *testing.T) {
	assert.True(t, Result{TrashDetected: true}.Accepted())
	assert.True(t, Result{ReceptacleDetected: true}.Accepted())
	assert.True(t, Result{TrashDetected: true, ReceptacleDetected: true}.Accepted())
	assert.False(t, Result{}.Accepted())
}

func TestClassifyServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	_, err := client.Classify(context.Background(), testJPEG(t, 10, 10))

	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestClassifyMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	_, err := client.Classify(context.Background(), testJPEG(t, 10, 10))

	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestClassifyInvalidImage(t *testing.T) {
	client := New("http://unused", "test-key")
	_, err := client.Classify(context.Background(), []byte("definitely not an image"))

	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestResizeToWidth(t *testing.T) {
	wide := image.NewRGBA(image.Rect(0, 0, 1000, 400))
	resized := resizeToWidth(wide, 500)

	assert.Equal(t, 500, resized.Bounds().Dx())
	assert.Equal(t, 200, resized.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 300, 200))
	assert.Equal(t, small.Bounds(), resizeToWidth(small, 500).Bounds())
}
