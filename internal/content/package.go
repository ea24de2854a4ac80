package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// File is one source document prepared for upload.
type File struct {
	Name    string
	Content []byte
}

// PackOptions selects the serialization layout for outbound content.
type PackOptions struct {
	// Format is "json" or "xml".
	Format string
	// PerItem emits one file per top-level item instead of a single document.
	PerItem bool
}

// BuildJobFiles serializes the translatable leaves of a job's content tree
// into one or more upload documents.
func BuildJobFiles(jobID int64, tree Tree, opts PackOptions) ([]File, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "json":
		format = "json"
	case "xml":
	default:
		return nil, fmt.Errorf("unsupported source file format %q", opts.Format)
	}

	fields := FilterTranslatable(Flatten(tree))

	if !opts.PerItem {
		content, err := encodeFields(fields, format)
		if err != nil {
			return nil, err
		}
		return []File{{
			Name:    "job-" + strconv.FormatInt(jobID, 10) + "." + format,
			Content: content,
		}}, nil
	}

	files := make([]File, 0, len(tree))
	usedNames := map[string]int{}
	for _, itemKey := range sortedKeys(tree) {
		item, ok := tree[itemKey].(map[string]any)
		if !ok {
			continue
		}

		baseName := sanitizeFileName(itemTitle(item))
		if baseName == "" {
			baseName = sanitizeFileName(itemKey)
		}
		if baseName == "" {
			baseName = "item-" + itemKey
		}

		// Sequential suffixes keep colliding titles apart deterministically.
		usedNames[baseName]++
		if seen := usedNames[baseName]; seen > 1 {
			baseName = baseName + "-" + strconv.Itoa(seen)
		}

		itemFields := make([]Field, 0, len(fields))
		for _, field := range fields {
			if strings.HasPrefix(field.Path, itemKey+Delimiter) {
				itemFields = append(itemFields, field)
			}
		}

		content, err := encodeFields(itemFields, format)
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Name:    baseName + "." + format,
			Content: content,
		})
	}

	return files, nil
}

func encodeFields(fields []Field, format string) ([]byte, error) {
	if format == "xml" {
		return encodeFieldsXML(fields), nil
	}

	flat := make(map[string]string, len(fields))
	for _, field := range fields {
		flat[field.Path] = field.Text
	}
	content, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encode source document: %w", err)
	}
	return content, nil
}

func encodeFieldsXML(fields []Field) []byte {
	var builder strings.Builder
	builder.WriteString("<items>")
	for _, field := range fields {
		builder.WriteString(`<item key="`)
		builder.WriteString(escapeXMLAttr(field.Path))
		builder.WriteString(`"><text type="text/html"><![CDATA[`)
		builder.WriteString(escapeCDATA(field.Text))
		builder.WriteString("]]></text></item>")
	}
	builder.WriteString("</items>")
	return []byte(builder.String())
}

func escapeXMLAttr(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(value)
}

// escapeCDATA splits a literal "]]>" so it cannot terminate the section.
func escapeCDATA(value string) string {
	return strings.ReplaceAll(value, "]]>", "]]]]><![CDATA[>")
}

// itemTitle digs out the item's display title leaf, when present.
func itemTitle(item Tree) string {
	title, ok := item["title"].(map[string]any)
	if !ok {
		return ""
	}
	delta, ok := title["0"].(map[string]any)
	if !ok {
		return ""
	}
	value, ok := delta["value"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := value[textKey].(string)
	return strings.TrimSpace(text)
}

// sanitizeFileName strips punctuation and symbols from a candidate base name.
func sanitizeFileName(raw string) string {
	var builder strings.Builder
	for _, r := range raw {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return strings.TrimSpace(builder.String())
}
