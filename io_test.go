package dmsatlas

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDetermineDelimiter(t *testing.T) {
	for _, v := range []struct {
		Input    string
		Expected rune
	}{
		{"Gene,Drug,conc\nABL1,Imatinib,5\nABL1,Imatinib,30\n", ','},
		{"Gene\tDrug\tconc\nABL1\tImatinib\t5\nABL1\tImatinib\t30\n", '\t'},
	} {
		if got := DetermineDelimiter([]byte(v.Input)); got != v.Expected {
			t.Errorf("Expected %q, got %q", v.Expected, got)
		}
	}
}

func TestMaybeDecompressReader(t *testing.T) {
	payload := []byte("Gene,Drug\nABL1,Imatinib\n")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	for name, input := range map[string][]byte{
		"plain": payload,
		"gzip":  gz.Bytes(),
	} {
		r, err := MaybeDecompressReader(bytes.NewReader(input))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("%s: expected %q, got %q", name, payload, got)
		}
	}

	if dt := DetectDataType([]byte{0x1f}); dt != DataTypeNoCompression {
		t.Errorf("A 1-byte head should not match any signature, got %v", dt)
	}
}

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://my-bucket/v1.0/heatmap_data.json")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "v1.0/heatmap_data.json" {
		t.Fatalf("Unexpected split: %q %q", bucket, object)
	}

	for _, bad := range []string{"gs://", "gs://bucket", "gs://bucket/"} {
		if _, _, err := SplitGoogleStoragePath(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}

	if got := JoinPath("gs://b/variants/", "ABL1_T315I.json"); got != "gs://b/variants/ABL1_T315I.json" {
		t.Errorf("Unexpected join: %q", got)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	ctx := context.Background()

	err := WriteToPathOrGoogleStorage(ctx, path, "text/plain", nil, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := ReadAllFromPathOrGoogleStorage(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("Expected hello, got %q", got)
	}

	if _, err := ReadAllFromPathOrGoogleStorage(ctx, "gs://bucket/object", nil); err == nil {
		t.Fatal("Expected an error reading gs:// without a client")
	}

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}
}

func TestStorageClientForLocalPaths(t *testing.T) {
	client, err := StorageClientFor(context.Background(), "a.csv", "/tmp/out.json")
	if err != nil {
		t.Fatal(err)
	}
	if client != nil {
		t.Fatalf("Expected no client for local paths")
	}
}
