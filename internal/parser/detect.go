package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// sniffLimit bounds how much file content Detect inspects when name and
// content type are inconclusive.
const sniffLimit = 8192

// Detect identifies the statement format of a file from its name, declared
// content type and, if those are inconclusive, a bounded prefix of its
// content. Returns ErrUnsupportedFormat when nothing matches.
func Detect(filename, contentType string, data []byte) (Format, error) {
	if f := detectByContentType(contentType); f != FormatUnknown {
		return f, nil
	}
	if f := detectByName(filename); f != FormatUnknown {
		return f, nil
	}
	if f := detectByContent(data); f != FormatUnknown {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("Detect: file %q (content type %q): %w", filename, contentType, ErrUnsupportedFormat)
}

func detectByContentType(contentType string) Format {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "":
		return FormatUnknown
	case strings.Contains(ct, "csv"):
		return FormatCSV
	case strings.Contains(ct, "pdf"):
		return FormatPDF
	case strings.HasPrefix(ct, "image/"):
		return FormatImage
	case strings.Contains(ct, "xml"):
		return FormatCAMT
	default:
		return FormatUnknown
	}
}

func detectByName(filename string) Format {
	name := strings.ToLower(filename)
	switch filepath.Ext(name) {
	case ".csv":
		return FormatCSV
	case ".pdf":
		return FormatPDF
	case ".png", ".jpg", ".jpeg":
		return FormatImage
	case ".mt940", ".mt942", ".sta":
		return FormatMT940
	case ".xml":
		return FormatCAMT
	}
	if strings.Contains(name, "camt") {
		return FormatCAMT
	}
	return FormatUnknown
}

// detectByContent sniffs a bounded prefix of the file. MT940 is recognized by
// the presence of both a message-start tag and a statement-line tag, CAMT by
// a statement-entry element or the camt scheme token, and delimited text by
// plain commas as a last resort.
func detectByContent(data []byte) Format {
	if len(data) > sniffLimit {
		data = data[:sniffLimit]
	}
	head := string(data)

	if strings.Contains(head, ":20:") && strings.Contains(head, ":61:") {
		return FormatMT940
	}
	if strings.Contains(head, "<Ntry") || strings.Contains(head, "camt.05") {
		return FormatCAMT
	}
	if strings.Contains(head, ",") {
		return FormatCSV
	}
	return FormatUnknown
}
