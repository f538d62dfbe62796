// Package loader extracts plain text from uploaded documents. Format parsing
// is delegated entirely to external libraries.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
)

var ErrUnsupportedType = errors.New("unsupported file type")

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// Supported reports whether the filename has an extension this loader can
// extract text from. The check is case-insensitive.
func Supported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extensions lists the supported file extensions, for error messages.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// Extract returns the plain text of the document at path, dispatching on the
// file extension.
func Extract(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		text, err := cat.File(path)
		if err != nil {
			return "", fmt.Errorf("extract docx: %w", err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedType, ext, strings.Join(Extensions(), ", "))
	}
}

func extractPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
