package reader

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ryanleh/labeled-psi/psi"
)

// The parsed contents of one source: either a bare item set or an ordered
// set of (item, label) pairs. The shape is fixed by the first valid record
// of a load and callers branch on the two variants.
type DBData interface {
	dbData()
}

type UnlabeledData []psi.Item

type LabeledData []psi.ItemLabel

func (UnlabeledData) dbData() {}
func (LabeledData) dbData()   {}

// Reads items (and optional labels) from a delimited text source, handling
// quoted fields, comma/backslash escapes, and whitespace trimming.
type Reader struct {
	fileName string
}

func NewReader(fileName string) *Reader {
	return &Reader{fileName: fileName}
}

// Read the named file. Surfaces open/read failures as errors; an empty or
// unusable file is an empty result, not an error.
func (r *Reader) ReadFile() (DBData, []string, error) {
	file, err := os.Open(r.fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: open %s: %w", r.fileName, err)
	}
	defer file.Close()
	return r.Read(file)
}

// Read all records from `stream`. Returns the parsed data together with the
// original (trimmed) item strings in the same order.
//
// The first line decides the shape of the result: if it has a label, the
// result is labeled and later records missing a label get an empty one; if
// it has none, the result stays unlabeled and later labels are dropped with
// a diagnostic. An empty stream or an unparsable first line yields an empty
// unlabeled result.
func (r *Reader) Read(stream io.Reader) (DBData, []string, error) {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	// Read first line
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, fmt.Errorf("reader: read %s: %w", r.fileName, err)
		}
		log.Printf("Empty source: %s", r.fileName)
		return UnlabeledData{}, nil, nil
	}

	// The first valid record fixes the shape
	var result DBData
	var origItems []string

	orig, item, label, hasItem, hasLabel := processLine(scanner.Text())
	if !hasItem {
		log.Printf("Invalid first line in %s", r.fileName)
		return UnlabeledData{}, nil, nil
	}

	origItems = append(origItems, orig)
	if hasLabel {
		result = LabeledData{{Item: item, Label: label}}
	} else {
		result = UnlabeledData{item}
	}

	// Process remaining lines
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		orig, item, label, hasItem, hasLabel = processLine(scanner.Text())
		if !hasItem {
			log.Printf("Skipping line %d in %s: no item", lineNum, r.fileName)
			continue
		}

		origItems = append(origItems, orig)
		switch data := result.(type) {
		case UnlabeledData:
			if hasLabel {
				log.Printf(
					"Label on line %d in %s ignored: dataset is unlabeled",
					lineNum, r.fileName,
				)
			}
			result = append(data, item)
		case LabeledData:
			// A missing label in a labeled dataset becomes an empty one
			result = append(data, psi.ItemLabel{Item: item, Label: label})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reader: read %s: %w", r.fileName, err)
	}

	return result, origItems, nil
}

// Parse a single line into its item and label. Returns the original trimmed
// item string, the derived item, the label bytes, and whether the line has
// an item / a label at all.
func processLine(line string) (string, psi.Item, psi.Label, bool, bool) {
	rawItem, rawLabel := parseTwoFields(line)

	rawItem = unescapeBackslash(strings.TrimSpace(rawItem))
	rawLabel = strings.TrimSpace(rawLabel)

	if rawItem == "" {
		return "", psi.Item{}, nil, false, false
	}

	return rawItem, psi.NewItem(rawItem), psi.Label(rawLabel), true, rawLabel != ""
}

type parseState int

const (
	unquoted parseState = iota
	inQuotes
	quoteInQuotes
)

// Split a line at unquoted commas, keeping only the first two fields. A
// field may be wrapped in double quotes to contain literal commas, and a
// doubled quote inside a quoted section is one literal quote. Outside
// quotes a backslash escapes a following comma or backslash, so an escaped
// comma never splits; the escape sequence itself is kept and collapsed
// later for the item field.
func parseTwoFields(line string) (string, string) {
	var fields []string
	var current strings.Builder
	state := unquoted

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch state {
		case unquoted:
			switch {
			case ch == '\\' && i+1 < len(line) && (line[i+1] == ',' || line[i+1] == '\\'):
				current.WriteByte(ch)
				current.WriteByte(line[i+1])
				i++
			case ch == '"':
				state = inQuotes
			case ch == ',':
				fields = append(fields, current.String())
				current.Reset()
			default:
				current.WriteByte(ch)
			}

		case inQuotes:
			if ch == '"' {
				state = quoteInQuotes
			} else {
				current.WriteByte(ch)
			}

		case quoteInQuotes:
			switch ch {
			case '"':
				// Escaped quote
				current.WriteByte('"')
				state = inQuotes
			case ',':
				fields = append(fields, current.String())
				current.Reset()
				state = unquoted
			default:
				// Closing quote, treat char normally
				state = unquoted
				current.WriteByte(ch)
			}
		}
	}

	// Append last field
	fields = append(fields, current.String())

	var first, second string
	if len(fields) > 0 {
		first = fields[0]
	}
	if len(fields) > 1 {
		second = fields[1]
	}
	return first, second
}

// Collapse `\,` and `\\` escapes. A backslash followed by anything else, or
// a trailing backslash, is left as-is.
func unescapeBackslash(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			if next == ',' || next == '\\' {
				out.WriteByte(next)
				i++
				continue
			}
		}
		out.WriteByte(s[i])
	}
	return out.String()
}
