package ocr

// Result is the backend's transcription of a document or image.
type Result struct {
	Model string `json:"model,omitempty"`
	Pages []Page `json:"pages"`
}

// Page is one transcribed page.
type Page struct {
	Index    int     `json:"index"`
	Markdown string  `json:"markdown"`
	Images   []Image `json:"images,omitempty"`
}

// Image is an image extracted from a page. ImageBase64 is only set when
// inline images were requested; it may be bare base64 or a data URL.
type Image struct {
	ID          string `json:"id"`
	ImageBase64 string `json:"image_base64,omitempty"`
}
