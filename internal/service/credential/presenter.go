package credential

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RegistrationPath is the URL path pattern embedded in every QR payload.
// Issued QR codes in the field depend on it, so it must not change.
const RegistrationPath = "/registro-personal/"

// Presenter turns a credential into its shareable artifacts: the payload a
// scanner reads, the copyable link, and a PNG rendering.
type Presenter struct {
	baseURL string
}

func NewPresenter(baseURL string) *Presenter {
	return &Presenter{baseURL: baseURL}
}

// Payload derives the scannable value from the access code. It is not stored;
// the access code is the only state.
func (p *Presenter) Payload(accessCode string) string {
	return p.baseURL + RegistrationPath + accessCode
}

// PNG renders the payload as a QR image of size x size pixels.
func (p *Presenter) PNG(accessCode string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(p.Payload(accessCode), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
