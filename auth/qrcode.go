package auth

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

// QRCodeDataURL renders content as a PNG QR code wrapped in a data URL
// suitable for an <img> src attribute.
func QRCodeDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
