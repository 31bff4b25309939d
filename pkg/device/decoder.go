package device

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Match - one decoded symbol
type Match struct {
	Payload []byte
	Points  []image.Point
}

// Decoder - barcode decoder abstraction
type Decoder interface {
	Decode(frame image.Image) ([]Match, error)
}

// QRDecoder - Decoder for QR codes
type QRDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder - QRDecoder constructor, tryHarder trades speed for accuracy
func NewQRDecoder(tryHarder bool) *QRDecoder {
	d := &QRDecoder{reader: qrcode.NewQRCodeReader()}
	if tryHarder {
		d.hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}
	return d
}

// Decode - returns the QR code found in frame, an empty result when there is none
func (d *QRDecoder) Decode(frame image.Image) ([]Match, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return nil, fmt.Errorf("cannot binarize frame: %w", err)
	}
	res, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		// not found, checksum and format failures all mean nothing readable in this frame
		return nil, nil
	}

	points := make([]image.Point, 0, len(res.GetResultPoints()))
	for _, p := range res.GetResultPoints() {
		points = append(points, image.Pt(int(math.Round(p.GetX())), int(math.Round(p.GetY()))))
	}
	return []Match{{Payload: []byte(res.GetText()), Points: points}}, nil
}
