package footage

import (
	"fmt"
	"strings"
)

// Orientation is the output aspect requested from the stock provider.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Vertical  Orientation = "vertical"
	Square    Orientation = "square"
)

// ParseOrientation accepts landscape, vertical (or portrait) and square.
func ParseOrientation(value string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(Landscape):
		return Landscape, nil
	case string(Vertical), "portrait":
		return Vertical, nil
	case string(Square):
		return Square, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", value)
	}
}

// ProviderValue is the orientation name understood by Pexels.
func (o Orientation) ProviderValue() string {
	if o == Vertical {
		return "portrait"
	}
	return string(o)
}

// FrameSize is an output resolution in pixels.
type FrameSize struct {
	Width  int
	Height int
}

func (f FrameSize) String() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// FrameSize returns the target resolution for the orientation.
func (o Orientation) FrameSize() FrameSize {
	switch o {
	case Vertical:
		return FrameSize{Width: 1080, Height: 1920}
	case Square:
		return FrameSize{Width: 1080, Height: 1080}
	default:
		return FrameSize{Width: 1920, Height: 1080}
	}
}

// Covers reports whether a w×h source is at least as large as the frame.
func (f FrameSize) Covers(w, h int) bool {
	return w >= f.Width && h >= f.Height
}

// Matches reports whether a w×h source is exactly the frame size.
func (f FrameSize) Matches(w, h int) bool {
	return w == f.Width && h == f.Height
}
