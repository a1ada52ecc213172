package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract settings for Greek legal text.
const (
	TesseractLanguages = "ell+eng"
	TesseractPSM       = 6 // single uniform block of text
	TesseractWhitelist = "αβγδεζηθικλμνξοπρστυφχψωςΑΒΓΔΕΖΗΘΙΚΛΜΝΞΟΠΡΣΤΥΦΧΨΩάέήίόύώϊϋΐΰ.,()-0123456789 "
)

// tesseractClient is the subset of *gosseract.Client the engine drives.
type tesseractClient interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	SetVariable(key gosseract.SettableVariable, value string) error
	Text() (string, error)
	Close() error
}

// TesseractEngine runs a local tesseract through gosseract. A fresh client is
// created per page and always closed.
type TesseractEngine struct {
	newClient func() tesseractClient
	logger    *slog.Logger
}

// NewTesseractEngine builds the engine. tessdataDir, when set, is exported as
// TESSDATA_PREFIX for libtesseract unless the environment already defines it.
func NewTesseractEngine(tessdataDir string, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if tessdataDir != "" && os.Getenv("TESSDATA_PREFIX") == "" {
		_ = os.Setenv("TESSDATA_PREFIX", tessdataDir)
	}
	return &TesseractEngine{
		newClient: func() tesseractClient { return gosseract.NewClient() },
		logger:    logger,
	}
}

func (t *TesseractEngine) Name() string { return EngineTesseract }

func (t *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := t.newClient()
	defer func() {
		if err := c.Close(); err != nil {
			t.logger.Warn("ocr.tesseract.close_error", "error", err)
		}
	}()

	if err := c.SetLanguage(TesseractLanguages); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	for k, v := range tesseractVariables() {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("tesseract variable %s: %w", k, err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func tesseractVariables() map[string]string {
	return map[string]string{
		"tessedit_pageseg_mode":     strconv.Itoa(TesseractPSM),
		"tessedit_char_whitelist":   TesseractWhitelist,
		"preserve_interword_spaces": "1",
	}
}
