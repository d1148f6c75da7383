package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ecoscan/ecoscan/internal/logger"
	"go.uber.org/zap"
)

var (
	ErrInvalidImage       = errors.New("image could not be decoded")
	ErrServiceUnavailable = errors.New("label detection service unavailable")
)

// maxImageWidth bounds the resize before upload, matching what the label
// service actually needs to classify a photo of trash.
const maxImageWidth = 500

const requestTimeout = 15 * time.Second

var trashKeywords = map[string]bool{
	"garbage":        true,
	"trash":          true,
	"litter":         true,
	"waste":          true,
	"recycling":      true,
	"disposable":     true,
	"paper waste":    true,
	"used napkin":    true,
	"dirty tissue":   true,
	"crumpled paper": true,
	"rubbish":        true,
	"plastic bag":    true,
	"debris":         true,
	"tissue box":     true,
	"plastic":        true,
	"paper":          true,
}

var receptacleKeywords = map[string]bool{
	"trash can":       true,
	"waste bin":       true,
	"dustbin":         true,
	"garbage can":     true,
	"recycling bin":   true,
	"waste container": true,
	"wastebasket":     true,
	"bin":             true,
}

type Result struct {
	TrashDetected      bool
	ReceptacleDetected bool
}

// Accepted applies the OR rule: a frame showing either the trash item or the
// receptacle verifies the scan. The QR gate and geofence already place the
// user at a receptacle, so requiring both labels in one photo mostly
// punished close-up shots.
func (r Result) Accepted() bool {
	return r.TrashDetected || r.ReceptacleDetected
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateResponse struct {
	Responses []struct {
		LabelAnnotations []struct {
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		} `json:"labelAnnotations"`
		LocalizedObjectAnnotations []struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		} `json:"localizedObjectAnnotations"`
	} `json:"responses"`
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Classify resizes and uploads a photo, then matches the returned labels
// against the trash and receptacle keyword sets. Transport and decode
// failures come back as ErrServiceUnavailable so the session can treat the
// photo as unverified and let the user retry.
func (c *Client) Classify(ctx context.Context, imageBytes []byte) (Result, error) {
	encoded, err := prepareImage(imageBytes)
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(annotateRequest{
		Requests: []annotateEntry{
			{
				Image: annotateImage{Content: encoded},
				Features: []annotateFeature{
					{Type: "LABEL_DETECTION", MaxResults: 10},
					{Type: "OBJECT_LOCALIZATION", MaxResults: 10},
				},
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, ErrServiceUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Log.Error("Label detection request failed", zap.Error(err))
		return Result{}, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Error("Label detection returned non-OK status", zap.Int("status", resp.StatusCode))
		return Result{}, ErrServiceUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, ErrServiceUnavailable
	}

	var annotated annotateResponse
	if err := json.Unmarshal(body, &annotated); err != nil {
		logger.Log.Error("Failed to decode label detection response", zap.Error(err))
		return Result{}, ErrServiceUnavailable
	}

	return matchLabels(&annotated), nil
}

func matchLabels(resp *annotateResponse) Result {
	var result Result

	if len(resp.Responses) == 0 {
		return result
	}

	consider := func(text string) {
		label := strings.ToLower(strings.TrimSpace(text))
		if trashKeywords[label] {
			result.TrashDetected = true
		}
		if receptacleKeywords[label] {
			result.ReceptacleDetected = true
		}
	}

	for _, label := range resp.Responses[0].LabelAnnotations {
		consider(label.Description)
	}
	for _, object := range resp.Responses[0].LocalizedObjectAnnotations {
		consider(object.Name)
	}

	return result
}

// prepareImage decodes the photo, scales it down to maxImageWidth if needed
// and returns it re-encoded as base64 JPEG.
func prepareImage(imageBytes []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", ErrInvalidImage
	}

	resized := resizeToWidth(src, maxImageWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 80}); err != nil {
		return "", ErrInvalidImage
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	if width <= maxWidth {
		return src
	}

	height := bounds.Dy() * maxWidth / width
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < maxWidth; x++ {
			srcX := bounds.Min.X + x*width/maxWidth
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}

	return dst
}
