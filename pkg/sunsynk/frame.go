package sunsynk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	ErrShortFrame       = errors.New("sunsynk: frame length mismatch")
	ErrBadMagic         = errors.New("sunsynk: bad frame header")
	ErrInvalidSerial    = errors.New("sunsynk: serial is not printable text")
	ErrInvalidTimestamp = errors.New("sunsynk: invalid frame timestamp")
	ErrFieldOutOfRange  = errors.New("sunsynk: field read past frame end")
)

// Measurement is one decoded registry entry: the field descriptor, the raw
// integer read from the frame and the resulting physical value.
type Measurement struct {
	Field Field
	Raw   int64
	Value float64
}

// DecodedFrame is the result of decoding one telemetry frame.
type DecodedFrame struct {
	Serial       string
	Timestamp    time.Time
	Measurements []Measurement
}

// Validate checks structural well-formedness of a raw buffer. It must pass
// before any field is read, since registry offsets assume a frame of exactly
// FrameLength bytes.
func Validate(buf []byte) error {
	if len(buf) != FrameLength {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(buf), FrameLength)
	}
	if buf[0] != FrameHeader {
		return fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrBadMagic, buf[0], FrameHeader)
	}
	return nil
}

// Decoder converts validated frames into physical measurements. The raw value
// width and byte order are decoder-wide, not per-field; big-endian 16-bit
// signed was determined from captured device frames. Location places the
// frame's wall-clock timestamp, which the device reports without a zone.
//
// The zero Decoder is not usable; construct with NewDecoder.
type Decoder struct {
	ByteOrder binary.ByteOrder
	RawWidth  int
	Location  *time.Location
}

func NewDecoder() *Decoder {
	return &Decoder{
		ByteOrder: binary.BigEndian,
		RawWidth:  2,
		Location:  time.UTC,
	}
}

// Decode validates buf and extracts the serial number, the frame timestamp and
// one Measurement per registry field, in registry order. On any error no
// partial result is returned.
func (d *Decoder) Decode(buf []byte) (*DecodedFrame, error) {
	if err := Validate(buf); err != nil {
		return nil, err
	}

	serial, err := decodeSerial(buf)
	if err != nil {
		return nil, err
	}

	ts, err := decodeTimestamp(buf, d.Location)
	if err != nil {
		return nil, err
	}

	measurements := make([]Measurement, 0, len(Fields))
	for _, field := range Fields {
		raw, err := d.readRaw(buf, field)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, Measurement{
			Field: field,
			Raw:   raw,
			Value: float64(raw)*field.Scale + field.Bias,
		})
	}

	return &DecodedFrame{
		Serial:       serial,
		Timestamp:    ts,
		Measurements: measurements,
	}, nil
}

// Decode decodes buf with the default decoder configuration.
func Decode(buf []byte) (*DecodedFrame, error) {
	return NewDecoder().Decode(buf)
}

func (d *Decoder) readRaw(buf []byte, field Field) (int64, error) {
	if field.Offset < 0 || field.Offset+d.RawWidth > len(buf) {
		return 0, fmt.Errorf("%w: field %s at offset %d", ErrFieldOutOfRange, field.ID, field.Offset)
	}
	word := buf[field.Offset : field.Offset+d.RawWidth]
	return int64(int16(d.ByteOrder.Uint16(word))), nil
}

func decodeSerial(buf []byte) (string, error) {
	raw := buf[serialStart:serialEnd]
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return "", fmt.Errorf("%w: byte 0x%02x", ErrInvalidSerial, b)
		}
	}
	return string(raw), nil
}

// decodeTimestamp reads the six calendar bytes starting at the datetime
// offset: year since 2000, month, day, hour, minute, second.
func decodeTimestamp(buf []byte, loc *time.Location) (time.Time, error) {
	b := buf[datetimeOffset : datetimeOffset+datetimeByteLen]
	year := 2000 + int(b[0])
	month := int(b[1])
	day := int(b[2])
	hour := int(b[3])
	minute := int(b[4])
	second := int(b[5])

	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d",
			ErrInvalidTimestamp, year, month, day, hour, minute, second)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}
