package splice

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ReadLines reads r as a sequence of lines. A leading UTF-8 BOM is dropped and CRLF line
// endings are normalized, so the returned slice indexes lines exactly as a 0-based editor
// view of the file would.
func ReadLines(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	content = bytes.TrimPrefix(content, bom)
	if len(content) == 0 {
		return []string{}, nil
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n"), nil
}

// WriteLines writes every entry followed by a newline. Entries holding inserted templates
// expand into several physical lines.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
	}
	return bw.Flush()
}
