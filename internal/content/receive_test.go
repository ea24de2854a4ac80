package content

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, body := range entries {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %q: %v", name, err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry %q: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestReceive_SingleJSONDocument(t *testing.T) {
	t.Parallel()

	files, err := Receive([]byte(`{"1][body][0][value":"Bonjour"}`))
	if err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one file, got %d", len(files))
	}
	if files[0].Name != "" {
		t.Fatalf("single document should have no name, got %q", files[0].Name)
	}
	if files[0].Fields["1][body][0][value"] != "Bonjour" {
		t.Fatalf("unexpected fields: %v", files[0].Fields)
	}
}

func TestReceive_SingleXMLDocument(t *testing.T) {
	t.Parallel()

	payload := []byte(`<items><item key="1][body"><text type="text/html"><![CDATA[Hallo]]></text></item></items>`)
	files, err := Receive(payload)
	if err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}
	if files[0].Fields["1][body"] != "Hallo" {
		t.Fatalf("unexpected fields: %v", files[0].Fields)
	}
}

func TestReceive_ZipArchiveParsesEveryDocument(t *testing.T) {
	t.Parallel()

	payload := buildZip(t, map[string]string{
		"output/First Item.json": `{"1][body":"Premier"}`,
		"output/Second Item.xml": `<items><item key="2][body"><text><![CDATA[Deuxieme]]></text></item></items>`,
		"output/notes.txt":       "not a translation document",
	})

	files, err := Receive(payload)
	if err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two parsed documents, got %d", len(files))
	}

	byName := map[string]map[string]string{}
	for _, file := range files {
		byName[file.Name] = file.Fields
	}
	if byName["First Item.json"]["1][body"] != "Premier" {
		t.Fatalf("unexpected JSON entry fields: %v", byName)
	}
	if byName["Second Item.xml"]["2][body"] != "Deuxieme" {
		t.Fatalf("unexpected XML entry fields: %v", byName)
	}
}

func TestReceive_ZipWithNoUsableEntriesIsUnparseable(t *testing.T) {
	t.Parallel()

	payload := buildZip(t, map[string]string{"readme.txt": "nothing here"})
	if _, err := Receive(payload); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestReceive_GarbageIsUnparseable(t *testing.T) {
	t.Parallel()

	if _, err := Receive([]byte("%%% not a package %%%")); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
	if _, err := Receive(nil); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable for empty payload, got %v", err)
	}
}

func TestReceive_ScalarJSONValuesAreCoerced(t *testing.T) {
	t.Parallel()

	files, err := Receive([]byte(`{"a":"text","b":3.5,"c":true,"d":null}`))
	if err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}

	fields := files[0].Fields
	if fields["a"] != "text" || fields["b"] != "3.5" || fields["c"] != "true" || fields["d"] != "" {
		t.Fatalf("unexpected coercion: %v", fields)
	}
}
