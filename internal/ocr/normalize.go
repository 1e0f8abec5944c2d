package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is the quality used when re-encoding images.
const JPEGQuality = 92

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// NormalizeImage returns data as JPEG. JPEG input is returned unchanged;
// other formats are decoded and re-encoded.
func NormalizeImage(data []byte, contentType, rawURL string) ([]byte, error) {
	if bytes.HasPrefix(data, jpegMagic) {
		return data, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ImageMIME(data, contentType, rawURL), err)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode %s as JPEG: %w", format, err)
	}
	return out.Bytes(), nil
}

var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// ImageMIME identifies an image format from its bytes, then the declared
// content type, then the URL extension. It defaults to image/jpeg.
func ImageMIME(data []byte, contentType, rawURL string) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if u, err := url.Parse(rawURL); err == nil {
		if mt, ok := extensionMIME[strings.ToLower(path.Ext(u.Path))]; ok {
			return mt
		}
	}
	return "image/jpeg"
}
