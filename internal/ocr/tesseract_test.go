package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTessClient struct {
	langs    []string
	vars     map[string]string
	img      []byte
	text     string
	textErr  error
	imageErr error
	closed   int
}

func (f *fakeTessClient) SetImageFromBytes(data []byte) error {
	f.img = data
	return f.imageErr
}

func (f *fakeTessClient) SetLanguage(langs ...string) error {
	f.langs = langs
	return nil
}

func (f *fakeTessClient) SetVariable(key gosseract.SettableVariable, value string) error {
	if f.vars == nil {
		f.vars = map[string]string{}
	}
	f.vars[string(key)] = value
	return nil
}

func (f *fakeTessClient) Text() (string, error) { return f.text, f.textErr }

func (f *fakeTessClient) Close() error {
	f.closed++
	return nil
}

func newFakeTesseract(c *fakeTessClient) *TesseractEngine {
	return &TesseractEngine{
		newClient: func() tesseractClient { return c },
		logger:    slog.Default(),
	}
}

func TestTesseractEngine_ConfiguresClient(t *testing.T) {
	c := &fakeTessClient{text: "Απόφαση 123/2020"}
	eng := newFakeTesseract(c)

	text, err := eng.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "Απόφαση 123/2020", text)
	assert.Equal(t, EngineTesseract, eng.Name())

	assert.Equal(t, []string{"ell+eng"}, c.langs)
	assert.Equal(t, "6", c.vars["tessedit_pageseg_mode"])
	assert.Equal(t, "1", c.vars["preserve_interword_spaces"])
	assert.Equal(t, TesseractWhitelist, c.vars["tessedit_char_whitelist"])
	assert.Equal(t, []byte("png"), c.img)
	assert.Equal(t, 1, c.closed)
}

func TestTesseractEngine_ClosesOnError(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeTessClient
	}{
		{"image error", &fakeTessClient{imageErr: errors.New("bad image")}},
		{"text error", &fakeTessClient{textErr: errors.New("engine crashed")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFakeTesseract(tt.client).Recognize(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.Equal(t, 1, tt.client.closed)
		})
	}
}

func TestTesseractEngine_CanceledContext(t *testing.T) {
	c := &fakeTessClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFakeTesseract(c).Recognize(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.closed, "no client is created for a canceled page")
}
