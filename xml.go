// FILE: lixenwraith/config/xml.go
package config

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// nameAttribute disambiguates sibling elements sharing a tag
const nameAttribute = "Name"

// XMLSource flattens an XML document into colon-delimited paths.
//
//	<settings Port="8008">
//	    <Data Name="Inventory" Provider="MySql">
//	        <ConnectionString>Server=db</ConnectionString>
//	    </Data>
//	</settings>
//
// yields Port, Data:Inventory:Provider and Data:Inventory:ConnectionString.
type XMLSource struct {
	baseSource
	filePath string
	reader   io.Reader
	data     []byte // buffered stream contents for reader-backed sources
}

// NewXMLSource creates a source that flattens the document read from r.
// The stream is read to completion on the first Load and kept for reloads.
func NewXMLSource(r io.Reader) *XMLSource {
	s := &XMLSource{reader: r}
	s.setup(SourceXML, "")
	return s
}

// NewXMLFileSource creates a source backed by an XML file. The file is
// opened on every Load.
func NewXMLFileSource(path string) (*XMLSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path must be a non-empty string", ErrInvalidArgument)
	}
	s := &XMLSource{filePath: path}
	s.setup(SourceXML, path)
	return s, nil
}

// Path returns the backing file path, empty for stream sources
func (s *XMLSource) Path() string {
	return s.filePath
}

// Load reads and flattens the document
func (s *XMLSource) Load() error {
	if s.filePath != "" {
		data, err := readConfigFile(s.filePath)
		if err != nil {
			return err
		}
		return s.loadBytes(data)
	}

	if s.data == nil {
		if s.reader == nil {
			return fmt.Errorf("%w: XML source has no input", ErrInvalidArgument)
		}
		data, err := io.ReadAll(s.reader)
		if err != nil {
			return fmt.Errorf("failed to read XML stream: %w", err)
		}
		s.data = data
	}
	return s.loadBytes(s.data)
}

// LoadFrom flattens the document read from r, replacing the loaded values
func (s *XMLSource) LoadFrom(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read XML stream: %w", err)
	}
	return s.loadBytes(data)
}

func (s *XMLSource) loadBytes(data []byte) error {
	store, err := flattenXML(data)
	if err != nil {
		if s.filePath != "" {
			return fmt.Errorf("failed to parse XML config file '%s': %w", s.filePath, err)
		}
		return err
	}
	s.publish(store)
	return nil
}

// FlattenXML reads an XML document and returns its flat store.
func FlattenXML(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read XML stream: %w", err)
	}
	return flattenXML(data)
}

// xmlFrame tracks one open element during the walk
type xmlFrame struct {
	path        string
	offset      int64 // position of the element name
	children    int
	attrs       int // attributes other than Name
	selfClosing bool
	emitted     bool // a text run has been recorded for path

	// the text run since the last markup token
	text       strings.Builder
	textOffset int64
	hasText    bool
}

// xmlFlattener walks the token stream with an explicit stack of open elements
type xmlFlattener struct {
	data    []byte
	lines   *lineIndex
	store   *Store
	stack   []*xmlFrame
	sawRoot bool
}

func flattenXML(data []byte) (*Store, error) {
	data, err := decodeXMLCharset(data)
	if err != nil {
		return nil, err
	}

	f := &xmlFlattener{
		data:  data,
		lines: newLineIndex(data),
		store: NewStore(),
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	// The document is already UTF-8 whatever its declaration says
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	for {
		offset := decoder.InputOffset()
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, atLine(syntaxErr.Line, 0, fmt.Errorf("%w: %s", ErrFormat, syntaxErr.Msg))
			}
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}

		switch t := tok.(type) {
		case xml.Directive:
			// DOCTYPE and its internal subset are never processed
			line, col := f.lines.position(offset)
			return nil, atLine(line, col, fmt.Errorf("%w: DTD is prohibited in XML configuration", ErrSecurity))

		case xml.StartElement:
			if err := f.flushText(); err != nil {
				return nil, err
			}
			if err := f.startElement(t, offset, decoder.InputOffset()); err != nil {
				return nil, err
			}

		case xml.EndElement:
			if err := f.flushText(); err != nil {
				return nil, err
			}
			if err := f.endElement(); err != nil {
				return nil, err
			}

		case xml.CharData:
			if len(f.stack) == 0 {
				continue
			}
			top := f.stack[len(f.stack)-1]
			if !top.hasText && len(bytes.TrimSpace(t)) > 0 {
				top.hasText = true
				top.textOffset = offset
			}
			top.text.Write(t)

		case xml.Comment, xml.ProcInst:
			// No value of their own, but they end the current text run
			if err := f.flushText(); err != nil {
				return nil, err
			}
		}
	}

	if !f.sawRoot {
		return nil, fmt.Errorf("%w: XML document has no root element", ErrFormat)
	}
	return f.store, nil
}

// startElement validates the element, emits its attributes and opens a frame.
// offset points at '<', end just past the closing '>' of the start tag.
func (f *xmlFlattener) startElement(el xml.StartElement, offset, end int64) error {
	if len(f.stack) == 0 {
		if f.sawRoot {
			line, col := f.lines.position(offset)
			return atLine(line, col, fmt.Errorf("%w: XML document has more than one root element", ErrFormat))
		}
		f.sawRoot = true
	}

	nameOffset := offset + 1
	tag := f.data[offset:end]
	attrOffsets := scanAttributeOffsets(tag)
	attrOffset := func(i int) int64 {
		if i < len(attrOffsets) {
			return offset + int64(attrOffsets[i])
		}
		return nameOffset
	}

	nameValue, hasName := "", false
	for i, attr := range el.Attr {
		if attr.Name.Space != "" || attr.Name.Local == "xmlns" {
			return f.namespaceError(attrOffset(i))
		}
		if strings.EqualFold(attr.Name.Local, nameAttribute) {
			nameValue, hasName = attr.Value, true
		}
	}
	// A default namespace declaration also qualifies the element name,
	// so attributes are checked first to report the declaration itself
	if el.Name.Space != "" {
		return f.namespaceError(nameOffset)
	}

	// The root contributes no segment of its own; any other element
	// contributes its tag. A Name attribute appends one more segment.
	var path string
	if n := len(f.stack); n > 0 {
		parent := f.stack[n-1]
		parent.children++
		path = CombinePath(parent.path, el.Name.Local)
	}
	if hasName {
		path = CombinePath(path, nameValue)
	}

	frame := &xmlFrame{
		path:        path,
		offset:      nameOffset,
		selfClosing: bytes.HasSuffix(tag, []byte("/>")),
	}

	for i, attr := range el.Attr {
		if strings.EqualFold(attr.Name.Local, nameAttribute) {
			continue
		}
		frame.attrs++
		if err := f.add(CombinePath(path, attr.Name.Local), attr.Value, attrOffset(i)); err != nil {
			return err
		}
	}

	f.stack = append(f.stack, frame)
	return nil
}

// endElement closes the current frame. An element that recorded no text
// yields "" unless it is a self-closing element carrying attributes.
func (f *xmlFlattener) endElement() error {
	n := len(f.stack)
	if n == 0 {
		return fmt.Errorf("%w: unbalanced end element", ErrFormat)
	}
	frame := f.stack[n-1]
	f.stack = f.stack[:n-1]

	if frame.path == "" || frame.emitted || frame.children > 0 {
		return nil
	}
	if frame.selfClosing && frame.attrs > 0 {
		// <Key Attr="v"/> only carries its attributes
		return nil
	}
	return f.add(frame.path, "", frame.offset)
}

// flushText records the pending text run of the open element. Runs split
// by comments, processing instructions or child elements are separate
// values for the same path, so differing runs conflict.
func (f *xmlFlattener) flushText() error {
	n := len(f.stack)
	if n == 0 {
		return nil
	}
	top := f.stack[n-1]
	if !top.hasText {
		top.text.Reset()
		return nil
	}

	value := top.text.String()
	top.text.Reset()
	top.hasText = false
	if top.path == "" {
		return nil
	}
	top.emitted = true
	return f.add(top.path, value, top.textOffset)
}

// add records a value; re-asserting an identical value is allowed
func (f *xmlFlattener) add(path, value string, offset int64) error {
	existing, conflict := f.store.Add(path, value)
	if conflict && existing != value {
		line, col := f.lines.position(offset)
		return atLine(line, col, duplicateKeyError(path))
	}
	return nil
}

func (f *xmlFlattener) namespaceError(offset int64) error {
	line, col := f.lines.position(offset)
	return atLine(line, col, ErrNamespaceNotSupported)
}

var xmlEncodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z][A-Za-z0-9._:-]*)["']`)

// decodeXMLCharset returns the document as UTF-8. A byte order mark decides
// the encoding; otherwise the declared encoding does. Offsets reported in
// errors refer to the returned bytes.
func decodeXMLCharset(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\xef\xbb\xbf")):
		return data[3:], nil
	case bytes.HasPrefix(data, []byte("\xff\xfe")), bytes.HasPrefix(data, []byte("\xfe\xff")):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid UTF-16 document: %w", ErrFormat, err)
		}
		return decoded, nil
	}

	m := xmlEncodingDecl.FindSubmatch(data)
	if m == nil {
		return data, nil
	}
	label := strings.ToLower(string(m[1]))
	switch {
	case label == "utf-8" || label == "utf8":
		return data, nil
	case strings.HasPrefix(label, "utf-16") || label == "ucs-2" || label == "unicode":
		// Without a byte order mark the declaration was readable as ASCII,
		// so the document was stored as text rather than UTF-16
		return data, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported XML encoding %q", ErrFormat, m[1])
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s document: %w", ErrFormat, m[1], err)
	}
	return decoded, nil
}

// scanAttributeOffsets returns the offsets of attribute names within a raw
// start tag, in source order
func scanAttributeOffsets(tag []byte) []int {
	var offsets []int

	i := 1
	for i < len(tag) && !isXMLSpace(tag[i]) && tag[i] != '>' && tag[i] != '/' {
		i++
	}

	for i < len(tag) {
		for i < len(tag) && isXMLSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] == '>' || tag[i] == '/' {
			break
		}
		offsets = append(offsets, i)

		for i < len(tag) && tag[i] != '=' {
			i++
		}
		i++
		for i < len(tag) && isXMLSpace(tag[i]) {
			i++
		}
		if i >= len(tag) {
			break
		}
		quote := tag[i]
		i++
		for i < len(tag) && tag[i] != quote {
			i++
		}
		i++
	}

	return offsets
}

func isXMLSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// lineIndex converts byte offsets into 1-based line and column numbers
type lineIndex struct {
	data   []byte
	starts []int
}

func newLineIndex(data []byte) *lineIndex {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{data: data, starts: starts}
}

// position returns the line and the column counted in characters
func (l *lineIndex) position(offset int64) (line, column int) {
	off := int(offset)
	if off > len(l.data) {
		off = len(l.data)
	}
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > off }) - 1
	return i + 1, utf8.RuneCount(l.data[l.starts[i]:off]) + 1
}

// readConfigFile reads a whole configuration file, mapping a missing file to ErrConfigNotFound
func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return data, nil
}
