package ocr

import (
	"context"
	"fmt"
	"log/slog"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionLanguageHints steer document text detection to Greek, including handwriting.
var VisionLanguageHints = []string{"el-t-i0-handwrit", "el"}

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// VisionEngine calls Google Cloud Vision DOCUMENT_TEXT_DETECTION.
type VisionEngine struct {
	annotate annotateFunc
	close    func() error
	hints    []string
	logger   *slog.Logger
}

// NewVisionEngine dials the Vision API. credentialsFile may be empty to use
// application default credentials.
func NewVisionEngine(ctx context.Context, credentialsFile string, logger *slog.Logger) (*VisionEngine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	annotate := func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return client.BatchAnnotateImages(ctx, req)
	}
	return newVisionEngine(annotate, client.Close, logger), nil
}

func newVisionEngine(annotate annotateFunc, closeFn func() error, logger *slog.Logger) *VisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionEngine{annotate: annotate, close: closeFn, hints: VisionLanguageHints, logger: logger}
}

func (v *VisionEngine) Name() string { return EngineVision }

// Recognize returns the full-document text annotation for img.
func (v *VisionEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: img},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: v.hints},
		}},
	}
	resp, err := v.annotate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	r := resp.GetResponses()[0]
	if e := r.GetError(); e != nil && e.GetCode() != 0 {
		return "", fmt.Errorf("vision annotate: code %d: %s", e.GetCode(), e.GetMessage())
	}
	text := r.GetFullTextAnnotation().GetText()
	v.logger.Debug("ocr.vision.ok", "chars", len(text), "pages", len(r.GetFullTextAnnotation().GetPages()))
	return text, nil
}

// Close releases the underlying gRPC connection.
func (v *VisionEngine) Close() error {
	if v.close == nil {
		return nil
	}
	return v.close()
}
