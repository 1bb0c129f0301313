package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// Vision is the image classifier collaborator: bytes in, labels out. The
// interest graph only ever consumes the Labels slice; landmarks, texts and
// hashtags ride along into the post-metadata record.
type Vision interface {
	AnnotateImage(ctx context.Context, img []byte) (*AnnotateResult, error)
	Close() error
}

type AnnotateResult struct {
	Labels    []string `json:"labels"`
	Landmarks []string `json:"landmarks,omitempty"`
	Texts     []string `json:"texts,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{log: slog, client: client}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) AnnotateImage(ctx context.Context, img []byte) (*AnnotateResult, error) {
	if len(img) == 0 {
		return &AnnotateResult{Labels: []string{}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 5},
			{Type: visionpb.Feature_LANDMARK_DETECTION, MaxResults: 1},
			{Type: visionpb.Feature_TEXT_DETECTION, MaxResults: 1},
			{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: 5},
		},
	}
	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &AnnotateResult{Labels: []string{}}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	labels := make([]string, 0, len(r0.LabelAnnotations))
	for _, a := range r0.LabelAnnotations {
		if a != nil && a.GetDescription() != "" {
			labels = append(labels, a.GetDescription())
		}
	}
	objects := make([]string, 0, len(r0.LocalizedObjectAnnotations))
	for _, o := range r0.LocalizedObjectAnnotations {
		if o != nil && o.GetName() != "" {
			objects = append(objects, o.GetName())
		}
	}
	landmarks := make([]string, 0, len(r0.LandmarkAnnotations))
	for _, a := range r0.LandmarkAnnotations {
		if a != nil && a.GetDescription() != "" {
			landmarks = append(landmarks, a.GetDescription())
		}
	}
	texts := make([]string, 0, len(r0.TextAnnotations))
	for _, a := range r0.TextAnnotations {
		if a != nil && a.GetDescription() != "" {
			texts = append(texts, a.GetDescription())
		}
	}

	// Labels and localized objects overlap heavily; dedupe, cap at five, then
	// append landmarks so place names always survive the cap.
	final := dedupe(append(labels, objects...))
	if len(final) > 5 {
		final = final[:5]
	}
	final = append(final, landmarks...)

	return &AnnotateResult{
		Labels:    final,
		Landmarks: landmarks,
		Texts:     texts,
		Hashtags:  hashtagsFrom(labels),
	}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func hashtagsFrom(labels []string) []string {
	n := len(labels)
	if n > 3 {
		n = 3
	}
	out := make([]string, 0, n)
	for _, l := range labels[:n] {
		out = append(out, "#"+strings.Join(strings.Fields(l), ""))
	}
	return out
}
