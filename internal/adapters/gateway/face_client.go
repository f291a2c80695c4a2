// Package gateway implements external API adapters
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"facebot/internal/core/domain"
	"facebot/internal/core/ports"
)

// ErrAnalysisFailed indicates the detection service could not analyze the
// image: either the transport call failed or the service reported an
// error_message in an otherwise successful response.
var ErrAnalysisFailed = errors.New("face analysis failed")

// detectAttributes is the attribute set requested from the detection service
const detectAttributes = "gender,age,beauty"

// Ensure FaceClient implements FaceAnalyzer
var _ ports.FaceAnalyzer = (*FaceClient)(nil)

// FaceClient handles communication with the face detection service
type FaceClient struct {
	httpClient *http.Client
	endpoint   string // Detect endpoint, e.g. https://api-us.faceplusplus.com/facepp/v3/detect
	apiKey     string
	apiSecret  string
}

// NewFaceClient creates a new detection service client
func NewFaceClient(endpoint, apiKey, apiSecret string) *FaceClient {
	return &FaceClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpoint:  endpoint,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// detectResponse mirrors the detection service's JSON response.
// error_message is populated instead of faces when the request was
// accepted at the HTTP level but rejected by the service.
type detectResponse struct {
	ErrorMessage string       `json:"error_message"`
	Faces        []detectFace `json:"faces"`
}

type detectFace struct {
	FaceRectangle struct {
		Left   float64 `json:"left"`
		Top    float64 `json:"top"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"face_rectangle"`
	Attributes struct {
		Gender struct {
			Value string `json:"value"`
		} `json:"gender"`
		Age struct {
			Value int `json:"value"`
		} `json:"age"`
		Beauty struct {
			MaleScore   float64 `json:"male_score"`
			FemaleScore float64 `json:"female_score"`
		} `json:"beauty"`
	} `json:"attributes"`
}

// Detect submits a base64 image for analysis and returns the detected faces.
// An empty slice is a valid zero-face outcome, not an error.
func (c *FaceClient) Detect(ctx context.Context, imageBase64 string) ([]domain.DetectedFace, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("api_secret", c.apiSecret)
	form.Set("image_base64", imageBase64)
	form.Set("return_attributes", detectAttributes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrAnalysisFailed, err)
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Error("Detection service response unparseable",
			"status_code", resp.StatusCode,
			"body", string(body),
		)
		return nil, fmt.Errorf("%w: decode response: %v", ErrAnalysisFailed, err)
	}

	// The service reports domain failures inside a 200 response
	if parsed.ErrorMessage != "" {
		slog.Error("Detection service reported error",
			"error_message", parsed.ErrorMessage,
		)
		return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, parsed.ErrorMessage)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrAnalysisFailed, resp.StatusCode)
	}

	faces := make([]domain.DetectedFace, 0, len(parsed.Faces))
	for _, f := range parsed.Faces {
		faces = append(faces, domain.DetectedFace{
			RectangleLeft: f.FaceRectangle.Left,
			Age:           f.Attributes.Age.Value,
			Gender:        f.Attributes.Gender.Value,
			BeautyMale:    f.Attributes.Beauty.MaleScore,
			BeautyFemale:  f.Attributes.Beauty.FemaleScore,
		})
	}

	slog.Debug("Face detection completed",
		"face_count", len(faces),
	)

	return faces, nil
}
