package ports

// QRRenderer turns pairing payload content into a displayable image
type QRRenderer interface {
	// RenderDataURI encodes content as a QR image and returns it as a
	// base64 PNG data URI suitable for an <img> src attribute.
	RenderDataURI(content string) (string, error)
}
