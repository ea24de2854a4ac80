package content

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// ErrUnparseable marks a downloaded translation package that matched none of
// the supported formats.
var ErrUnparseable = errors.New("unparseable translation payload")

// TranslatedFile is one parsed translation document: its file name (empty for
// a single-document response) and the flattened path-to-text mapping.
type TranslatedFile struct {
	Name   string
	Fields map[string]string
}

// Receive classifies a downloaded package and parses it. The payload is tried
// as a single JSON document first, then as a ZIP archive of per-item XML/JSON
// documents, and finally as a bare XML document.
func Receive(payload []byte) ([]TranslatedFile, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrUnparseable
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		fields, err := parseJSONTranslation(trimmed)
		if err == nil {
			return []TranslatedFile{{Fields: fields}}, nil
		}
	}

	if archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload))); err == nil {
		return receiveArchive(archive)
	}

	if trimmed[0] == '<' {
		fields, err := parseXMLTranslation(trimmed)
		if err != nil {
			return nil, ErrUnparseable
		}
		return []TranslatedFile{{Fields: fields}}, nil
	}

	fields, err := parseJSONTranslation(trimmed)
	if err != nil {
		return nil, ErrUnparseable
	}
	return []TranslatedFile{{Fields: fields}}, nil
}

func receiveArchive(archive *zip.Reader) ([]TranslatedFile, error) {
	files := make([]TranslatedFile, 0, len(archive.File))
	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		name := path.Base(entry.Name)
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		if ext != "xml" && ext != "json" {
			continue
		}

		reader, err := entry.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil || len(raw) == 0 {
			continue
		}

		var fields map[string]string
		if ext == "xml" {
			fields, err = parseXMLTranslation(raw)
		} else {
			fields, err = parseJSONTranslation(raw)
		}
		if err != nil {
			continue
		}

		files = append(files, TranslatedFile{Name: name, Fields: fields})
	}

	if len(files) == 0 {
		return nil, ErrUnparseable
	}
	return files, nil
}

func parseJSONTranslation(raw []byte) (map[string]string, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode translation JSON: %w", err)
	}

	fields := make(map[string]string, len(decoded))
	for key, value := range decoded {
		switch text := value.(type) {
		case string:
			fields[key] = text
		case float64:
			fields[key] = strconv.FormatFloat(text, 'f', -1, 64)
		case bool:
			fields[key] = strconv.FormatBool(text)
		case nil:
			fields[key] = ""
		default:
			return nil, fmt.Errorf("translation value for %q is not scalar", key)
		}
	}
	return fields, nil
}

type xmlTranslationDoc struct {
	XMLName xml.Name             `xml:"items"`
	Items   []xmlTranslationItem `xml:"item"`
}

type xmlTranslationItem struct {
	Key  string `xml:"key,attr"`
	Text string `xml:"text"`
}

func parseXMLTranslation(raw []byte) (map[string]string, error) {
	var doc xmlTranslationDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode translation XML: %w", err)
	}

	fields := make(map[string]string, len(doc.Items))
	for _, item := range doc.Items {
		if item.Key == "" {
			continue
		}
		fields[item.Key] = item.Text
	}
	return fields, nil
}
