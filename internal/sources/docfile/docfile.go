// Package docfile extracts plain text from uploaded document files.
// Supported formats: .docx (OOXML paragraph extraction), .pdf, and
// passthrough .txt/.md.
package docfile

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedExtension is returned for file types the extractor does not
// handle. Callers treat it as an input error: no partial work is performed.
var ErrUnsupportedExtension = errors.New("docfile: unsupported file extension")

// Extract reads the file at path and returns its plain text. The original
// filename decides the format; path may be a temp file with an opaque name.
func Extract(path, originalName string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(originalName)); ext {
	case ".docx":
		return extractDocx(path)
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("docfile: reading %s: %w", originalName, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// Supported reports whether Extract handles the file's extension.
func Supported(originalName string) bool {
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".docx", ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// SafeName derives the chunk-ID-safe base name from an original filename:
// the base name without its extension.
func SafeName(originalName string) string {
	base := filepath.Base(originalName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// documentXML mirrors the parts of word/document.xml the extractor reads:
// paragraphs, their runs, and the text elements inside each run.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// extractDocx opens a .docx as a ZIP archive and joins the text of every
// paragraph in word/document.xml with newlines.
func extractDocx(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("docfile: opening docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("docfile: opening document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("docfile: reading document.xml: %w", err)
		}

		var doc documentXML
		if err := xml.Unmarshal(content, &doc); err != nil {
			return "", fmt.Errorf("docfile: parsing document.xml: %w", err)
		}

		var b strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				b.WriteString("\n")
			}
			for _, run := range para.Runs {
				for _, text := range run.Text {
					b.WriteString(text.Content)
				}
			}
		}
		return b.String(), nil
	}

	return "", fmt.Errorf("docfile: no word/document.xml in archive")
}

// extractPDF concatenates the plain text of every page.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("docfile: opening pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("docfile: extracting pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(r); err != nil {
		return "", fmt.Errorf("docfile: reading pdf text: %w", err)
	}
	return buf.String(), nil
}
