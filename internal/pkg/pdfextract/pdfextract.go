package pdfextract

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Text extracts plain text from the PDF in r, collapses runs of whitespace,
// and truncates the result to maxBytes (0 means unlimited). Returns an empty
// string and nil error for a PDF without extractable text.
func Text(r io.Reader, maxBytes int) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}

	text := strings.Join(strings.Fields(string(out)), " ")
	if maxBytes > 0 && len(text) > maxBytes {
		cut := text[:maxBytes]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		text = cut
	}
	return text, nil
}
