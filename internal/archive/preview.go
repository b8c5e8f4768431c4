package archive

import (
	"fmt"
	"sort"
	"strings"
)

// ImagePlaceholder stands in for an image frame in text previews.
const ImagePlaceholder = "🖼️"

// ErrUnsupportedFrame is returned when a preview meets a frame kind it
// cannot render.
type ErrUnsupportedFrame struct {
	Kind string
}

func (e *ErrUnsupportedFrame) Error() string {
	return fmt.Sprintf("unsupported frame type %q", e.Kind)
}

// Preview renders a quiz as one line of text: its frames joined by spaces.
func Preview(q Quiz) (string, error) {
	parts := make([]string, 0, len(q.Frames))
	for _, f := range q.Frames {
		s, err := RenderFrame(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}

// RenderFrame renders a single frame. Options are ordered by priority and
// labelled A, B, ... Z, AA, AB, ...
func RenderFrame(f Frame) (string, error) {
	switch fr := f.(type) {
	case Text:
		return fr.Content, nil
	case Image:
		return ImagePlaceholder, nil
	case Options:
		items := make([]Option, len(fr.Items))
		copy(items, fr.Items)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Priority < items[j].Priority })

		parts := make([]string, 0, len(items))
		for i, it := range items {
			s, err := RenderFrame(it.Content)
			if err != nil {
				return "", err
			}
			parts = append(parts, Label(i)+". "+s)
		}
		return strings.Join(parts, " "), nil
	default:
		kind := "<nil>"
		if f != nil {
			kind = f.Kind()
		}
		return "", &ErrUnsupportedFrame{Kind: kind}
	}
}

// Label returns the bijective base-26 letter label of the zero-based index n.
func Label(n int) string {
	var b []byte
	for n++; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
