// Package send implements the Send Executor: bulk-send iteration
// over the Admission Pipeline plus the QR-payload image pipeline that turns
// a session's raw pairing text into a dashboard-displayable PNG data URL.
package send

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
)

const qrImageSide = 280

// RenderQRDataURL turns the raw pairing text whatsmeow emits into a
// resized PNG data URL a dashboard can drop straight into an <img> tag.
func RenderQRDataURL(rawText string) (string, error) {
	if rawText == "" {
		return "", fmt.Errorf("empty qr payload")
	}
	raw, err := qrcode.Encode(rawText, qrcode.Medium, 512)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode qr png: %w", err)
	}
	resized := resize.Resize(qrImageSide, qrImageSide, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return "", fmt.Errorf("encode resized qr: %w", err)
	}
	return dataurl.New(buf.Bytes(), "image/png").String(), nil
}
