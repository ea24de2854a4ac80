package content

import (
	"encoding/json"
	"strings"
	"testing"
)

func itemWithTitle(title, body string) Tree {
	return Tree{
		"title": Tree{
			"0": Tree{"value": Tree{"#text": title}},
		},
		"body": Tree{
			"0": Tree{"value": Tree{"#text": body}},
		},
	}
}

func TestBuildJobFiles_SingleJSONDocument(t *testing.T) {
	t.Parallel()

	tree := Tree{"1": itemWithTitle("First", "Body one")}
	files, err := BuildJobFiles(42, tree, PackOptions{Format: "json"})
	if err != nil {
		t.Fatalf("BuildJobFiles returned error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one file, got %d", len(files))
	}
	if files[0].Name != "job-42.json" {
		t.Fatalf("unexpected file name %q", files[0].Name)
	}

	var flat map[string]string
	if err := json.Unmarshal(files[0].Content, &flat); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if flat["1][title][0][value"] != "First" {
		t.Fatalf("unexpected flattened document: %v", flat)
	}
}

func TestBuildJobFiles_PerItemNamesFromTitles(t *testing.T) {
	t.Parallel()

	tree := Tree{
		"1": itemWithTitle("Hello, World!", "Body one"),
		"2": itemWithTitle("Hello World", "Body two"),
		"3": itemWithTitle("Hello World", "Body three"),
	}

	files, err := BuildJobFiles(7, tree, PackOptions{Format: "json", PerItem: true})
	if err != nil {
		t.Fatalf("BuildJobFiles returned error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected three files, got %d", len(files))
	}

	// Punctuation is stripped, so all three titles collide and the later two
	// get sequential suffixes.
	want := []string{"Hello World.json", "Hello World-2.json", "Hello World-3.json"}
	for idx, file := range files {
		if file.Name != want[idx] {
			t.Fatalf("file %d: got name %q want %q", idx, file.Name, want[idx])
		}
	}
}

func TestBuildJobFiles_PerItemScopesFieldsToItem(t *testing.T) {
	t.Parallel()

	tree := Tree{
		"1": itemWithTitle("One", "Body one"),
		"2": itemWithTitle("Two", "Body two"),
	}

	files, err := BuildJobFiles(7, tree, PackOptions{Format: "json", PerItem: true})
	if err != nil {
		t.Fatalf("BuildJobFiles returned error: %v", err)
	}

	var first map[string]string
	if err := json.Unmarshal(files[0].Content, &first); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	for path := range first {
		if !strings.HasPrefix(path, "1][") {
			t.Fatalf("file for item 1 contains foreign path %q", path)
		}
	}
}

func TestBuildJobFiles_XMLWrapsTextInCDATA(t *testing.T) {
	t.Parallel()

	tree := Tree{
		"1": Tree{
			"body": Tree{"#text": `<p class="x">Hello & goodbye</p>`},
		},
	}

	files, err := BuildJobFiles(9, tree, PackOptions{Format: "xml"})
	if err != nil {
		t.Fatalf("BuildJobFiles returned error: %v", err)
	}
	doc := string(files[0].Content)

	if !strings.HasPrefix(doc, "<items>") || !strings.HasSuffix(doc, "</items>") {
		t.Fatalf("unexpected XML envelope: %s", doc)
	}
	if !strings.Contains(doc, `<item key="1][body">`) {
		t.Fatalf("expected escaped key attribute, got: %s", doc)
	}
	if !strings.Contains(doc, `<![CDATA[<p class="x">Hello & goodbye</p>]]>`) {
		t.Fatalf("expected CDATA-wrapped markup, got: %s", doc)
	}

	// The XML parser on the receiving side must read the text back verbatim.
	fields, err := parseXMLTranslation(files[0].Content)
	if err != nil {
		t.Fatalf("parseXMLTranslation returned error: %v", err)
	}
	if fields["1][body"] != `<p class="x">Hello & goodbye</p>` {
		t.Fatalf("round trip mismatch: %v", fields)
	}
}

func TestBuildJobFiles_CDATATerminatorIsSplit(t *testing.T) {
	t.Parallel()

	tree := Tree{"1": Tree{"body": Tree{"#text": "a]]>b"}}}
	files, err := BuildJobFiles(1, tree, PackOptions{Format: "xml"})
	if err != nil {
		t.Fatalf("BuildJobFiles returned error: %v", err)
	}

	fields, err := parseXMLTranslation(files[0].Content)
	if err != nil {
		t.Fatalf("parseXMLTranslation returned error: %v", err)
	}
	if fields["1][body"] != "a]]>b" {
		t.Fatalf("CDATA terminator not preserved: %v", fields)
	}
}

func TestBuildJobFiles_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := BuildJobFiles(1, Tree{}, PackOptions{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
