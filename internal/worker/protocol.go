package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/andresmejia3/willis/internal/landmarks"
)

// Response status bytes written by the landmark worker.
const (
	StatusOK      byte = 0
	StatusError   byte = 1
	StatusCascade byte = 2
	StatusNoFace  byte = 3
)

// maxLandmarks bounds the point count read from a response.
const maxLandmarks = 4096

var (
	ErrNoFace  = errors.New("no face detected")
	ErrTimeout = errors.New("worker timed out")
)

// RemoteError is a failure reported by the worker itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "python worker error: " + e.Message }

// Detection is what the worker found in one image. Landmarks is nil when
// only cascade boxes were available.
type Detection struct {
	Width     int
	Height    int
	Landmarks landmarks.Set
	Face      image.Rectangle
	Eye       *image.Rectangle
}

func (d Detection) HasLandmarks() bool { return len(d.Landmarks) > 0 }

// DecodeResponse parses one response payload (without its length prefix).
func DecodeResponse(payload []byte) (Detection, error) {
	if len(payload) == 0 {
		return Detection{}, errors.New("empty worker response")
	}
	r := bytes.NewReader(payload[1:])

	switch payload[0] {
	case StatusOK:
		var hdr struct{ W, H, N uint32 }
		if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
			return Detection{}, fmt.Errorf("read landmark header: %w", err)
		}
		if hdr.N > maxLandmarks {
			return Detection{}, fmt.Errorf("landmark count %d exceeds limit", hdr.N)
		}
		pts := make([]float32, 2*hdr.N)
		if err := binary.Read(r, binary.BigEndian, pts); err != nil {
			return Detection{}, fmt.Errorf("read landmarks: %w", err)
		}
		set := make(landmarks.Set, hdr.N)
		for i := range set {
			x, y := float64(pts[2*i]), float64(pts[2*i+1])
			if !isFinite(x) || !isFinite(y) {
				return Detection{}, fmt.Errorf("landmark %d is not finite", i)
			}
			set[i] = landmarks.Landmark{X: x, Y: y}
		}
		return Detection{Width: int(hdr.W), Height: int(hdr.H), Landmarks: set}, nil

	case StatusCascade:
		var hdr struct {
			W, H uint32
			Face [4]int32
			Eye  uint8
		}
		if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
			return Detection{}, fmt.Errorf("read cascade boxes: %w", err)
		}
		d := Detection{Width: int(hdr.W), Height: int(hdr.H), Face: boxRect(hdr.Face)}
		if hdr.Eye != 0 {
			var eye [4]int32
			if err := binary.Read(r, binary.BigEndian, &eye); err != nil {
				return Detection{}, fmt.Errorf("read eye box: %w", err)
			}
			rect := boxRect(eye)
			d.Eye = &rect
		}
		return d, nil

	case StatusNoFace:
		return Detection{}, ErrNoFace

	case StatusError:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Detection{}, fmt.Errorf("read error length: %w", err)
		}
		if int64(n) > int64(r.Len()) {
			return Detection{}, fmt.Errorf("error message truncated: header says %d bytes, %d left", n, r.Len())
		}
		msg := make([]byte, n)
		if _, err := io.ReadFull(r, msg); err != nil {
			return Detection{}, fmt.Errorf("read error message: %w", err)
		}
		return Detection{}, &RemoteError{Message: string(msg)}
	}
	return Detection{}, fmt.Errorf("unknown worker status %d", payload[0])
}

// boxRect converts an (x, y, w, h) box.
func boxRect(b [4]int32) image.Rectangle {
	return image.Rect(int(b[0]), int(b[1]), int(b[0]+b[2]), int(b[1]+b[3]))
}

// EncodeLandmarks builds a StatusOK payload. The worker process speaks
// the same format; tests and fakes use this to produce responses.
func EncodeLandmarks(width, height int, set landmarks.Set) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(StatusOK)
	binary.Write(buf, binary.BigEndian, [3]uint32{uint32(width), uint32(height), uint32(len(set))})
	for _, lm := range set {
		binary.Write(buf, binary.BigEndian, [2]float32{float32(lm.X), float32(lm.Y)})
	}
	return buf.Bytes()
}

// EncodeCascade builds a StatusCascade payload from (x, y, w, h) boxes.
func EncodeCascade(width, height int, face image.Rectangle, eye *image.Rectangle) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(StatusCascade)
	binary.Write(buf, binary.BigEndian, [2]uint32{uint32(width), uint32(height)})
	binary.Write(buf, binary.BigEndian, rectBox(face))
	if eye == nil {
		buf.WriteByte(0)
		return buf.Bytes()
	}
	buf.WriteByte(1)
	binary.Write(buf, binary.BigEndian, rectBox(*eye))
	return buf.Bytes()
}

// EncodeError builds a StatusError payload.
func EncodeError(msg string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(StatusError)
	binary.Write(buf, binary.BigEndian, uint32(len(msg)))
	buf.WriteString(msg)
	return buf.Bytes()
}

func rectBox(r image.Rectangle) [4]int32 {
	return [4]int32{int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy())}
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
