package domain

// Image is one uploaded photo, held in memory for the duration of a request.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (i Image) Size() int {
	return len(i.Data)
}
