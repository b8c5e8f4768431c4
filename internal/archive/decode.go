package archive

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ParseError reports malformed archive content.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

type xmlArchive struct {
	XMLName  xml.Name  `xml:"archive"`
	Creation string    `xml:"creation,attr"`
	Quizzes  []xmlQuiz `xml:"quiz"`
}

type xmlQuiz struct {
	Name         string         `xml:"name,attr"`
	Creation     string         `xml:"creation,attr"`
	Modification string         `xml:"modification,attr"`
	Frames       frameList      `xml:"frames"`
	Dimensions   []xmlDimension `xml:"dimension"`
}

type xmlDimension struct {
	Name      string `xml:"name,attr"`
	Intensity string `xml:",chardata"`
}

type xmlImage struct {
	Src    string `xml:"src,attr"`
	Alt    string `xml:"alt,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type frameList []Frame

func (fl *frameList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			f, err := decodeFrame(d, t)
			if err != nil {
				return err
			}
			*fl = append(*fl, f)
		case xml.EndElement:
			return nil
		}
	}
}

func decodeFrame(d *xml.Decoder, start xml.StartElement) (Frame, error) {
	switch start.Name.Local {
	case "text":
		var s string
		if err := d.DecodeElement(&s, &start); err != nil {
			return nil, err
		}
		return Text{Content: s}, nil
	case "image":
		var img xmlImage
		if err := d.DecodeElement(&img, &start); err != nil {
			return nil, err
		}
		return Image{Src: img.Src, Alt: img.Alt, Width: img.Width, Height: img.Height}, nil
	case "options":
		return decodeOptions(d, start)
	default:
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return Unknown{Element: start.Name.Local}, nil
	}
}

func decodeOptions(d *xml.Decoder, start xml.StartElement) (Frame, error) {
	opts := Options{Name: attr(start, "name")}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "item" {
				return nil, parseErrorf("unexpected <%s> in options", t.Name.Local)
			}
			item, err := decodeItem(d, t)
			if err != nil {
				return nil, err
			}
			opts.Items = append(opts.Items, item)
		case xml.EndElement:
			return opts, nil
		}
	}
}

func decodeItem(d *xml.Decoder, start xml.StartElement) (Option, error) {
	var opt Option
	if p := attr(start, "priority"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return opt, parseErrorf("bad option priority %q", p)
		}
		opt.Priority = n
	}
	opt.Key = attr(start, "key") == "true"

	for {
		tok, err := d.Token()
		if err != nil {
			return opt, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if opt.Content != nil {
				return opt, parseErrorf("option holds more than one frame")
			}
			f, err := decodeFrame(d, t)
			if err != nil {
				return opt, err
			}
			opt.Content = f
		case xml.EndElement:
			if opt.Content == nil {
				return opt, parseErrorf("empty option")
			}
			return opt, nil
		}
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Decode reads one archive document from r, which must already be
// decompressed. Malformed input yields a *ParseError.
func Decode(r io.Reader) (*Archive, error) {
	br := bufio.NewReader(r)
	if err := skipDeclaration(br); err != nil {
		return nil, err
	}

	var doc xmlArchive
	if err := xml.NewDecoder(br).Decode(&doc); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		var se *xml.SyntaxError
		if errors.As(err, &se) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isXMLTypeError(err) {
			return nil, parseErrorf("%v", err)
		}
		return nil, err
	}

	a := &Archive{}
	var err error
	if a.Creation, err = parseTime(doc.Creation, "archive creation"); err != nil {
		return nil, err
	}

	for _, xq := range doc.Quizzes {
		q := Quiz{Name: xq.Name, Frames: xq.Frames}
		if q.Creation, err = parseTime(xq.Creation, "quiz creation"); err != nil {
			return nil, err
		}
		if xq.Modification != "" {
			m, err := parseTime(xq.Modification, "quiz modification")
			if err != nil {
				return nil, err
			}
			q.Modification = &m
		}
		for _, xd := range xq.Dimensions {
			name := strings.TrimSpace(xd.Name)
			if name == "" {
				return nil, parseErrorf("dimension without name")
			}
			intensity := 0.0
			if s := strings.TrimSpace(xd.Intensity); s != "" {
				if intensity, err = strconv.ParseFloat(s, 64); err != nil {
					return nil, parseErrorf("bad intensity %q for dimension %s", s, name)
				}
			}
			q.Dimensions = append(q.Dimensions, Dimension{Name: name, Intensity: intensity})
		}
		a.Quizzes = append(a.Quizzes, q)
	}

	return a, nil
}

func isXMLTypeError(err error) bool {
	var ue xml.UnmarshalError
	var ne *strconv.NumError
	return errors.As(err, &ue) || errors.As(err, &ne)
}

func parseTime(s, what string) (time.Time, error) {
	if s == "" {
		return time.Time{}, parseErrorf("missing %s time", what)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, parseErrorf("bad %s time %q", what, s)
	}
	return t, nil
}

// skipDeclaration drops a leading <?xml ...?> declaration. Archives are
// written as XML 1.1, which encoding/xml refuses to read.
func skipDeclaration(br *bufio.Reader) error {
	head, err := br.Peek(5)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return parseErrorf("empty archive")
		}
		return err
	}
	if !bytes.Equal(head, []byte("<?xml")) {
		return nil
	}
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return parseErrorf("unterminated XML declaration")
			}
			return err
		}
		if prev == '?' && b == '>' {
			return nil
		}
		prev = b
	}
}
