package qr

import (
	"encoding/base64"
	"fmt"

	"github.com/layer-3/qrlink/ports"
	qrcode "github.com/skip2/go-qrcode"
)

// QRCodeRenderer renders pairing payloads as base64 PNG data URIs
type QRCodeRenderer struct {
	size int
}

// NewQRCodeRenderer creates a new QR code renderer
func NewQRCodeRenderer() ports.QRRenderer {
	return &QRCodeRenderer{size: 256}
}

// RenderDataURI encodes content as a QR PNG and returns it as a data URI
func (r *QRCodeRenderer) RenderDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, r.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
