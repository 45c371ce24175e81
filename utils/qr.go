package utils

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// GenerateQRCode returns a PNG QR code for content.
func GenerateQRCode(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// QRCodeDataURL renders content as a base64 PNG data URL, or "" on failure.
func QRCodeDataURL(content string, size int) string {
	qrBytes, err := GenerateQRCode(content, size)
	if err != nil {
		Log.Warnw("qr code generation failed", "content", content, "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrBytes)
}
