// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for file types without an extractor.
var ErrUnsupported = errors.New("unsupported file type")

const wordDocument = "word/document.xml"

// Extensions lists the accepted file extensions.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// File extracts the text of the document at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return Read(filepath.Base(path), f, info.Size())
}

// Read extracts text from r, choosing the format by the extension of name.
func Read(name string, r io.ReaderAt, size int64) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".txt":
		data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
		if err != nil {
			return "", fmt.Errorf("reading text: %w", err)
		}
		return string(data), nil
	case ".docx":
		return readDOCX(r, size)
	case ".pdf":
		return readPDF(r, size)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// readPDF joins the plain text of every page with newlines, skipping pages
// without text. The pdf package panics on broken object graphs; those
// panics surface as errors.
func readPDF(r io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		if content == "" {
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

// readDOCX returns the body paragraphs of a Word document, one per line.
func readDOCX(r io.ReaderAt, size int64) (string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}

	f, err := archive.Open(wordDocument)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer f.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", wordDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
