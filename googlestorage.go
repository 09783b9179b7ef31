package dmsatlas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

const googleStoragePrefix = "gs://"

func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, googleStoragePrefix)
}

// SplitGoogleStoragePath splits gs://bucket/path/to/object into its bucket
// and object name.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, googleStoragePrefix), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// ReadAllFromPathOrGoogleStorage reads the whole file at path into memory,
// transparently decompressing it. Paths beginning with gs:// are fetched with
// client, which must be non-nil for such paths.
func ReadAllFromPathOrGoogleStorage(ctx context.Context, path string, client *storage.Client) ([]byte, error) {
	var src io.ReadCloser

	if IsGoogleStoragePath(path) {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s: a Google Storage client is required to read this path", path))
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, pfx.Err(err)
		}

		rdr, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		src = rdr
	} else {
		expanded, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}

		f, err := os.Open(expanded)
		if err != nil {
			return nil, pfx.Err(err)
		}
		src = f
	}
	defer src.Close()

	r, err := MaybeDecompressReader(src)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return data, nil
}

// WriteToPathOrGoogleStorage runs write against a writer for path. Local
// parent directories are created as needed. For gs:// paths, the object is
// only committed if write succeeds.
func WriteToPathOrGoogleStorage(ctx context.Context, path, contentType string, client *storage.Client, write func(io.Writer) error) error {
	if IsGoogleStoragePath(path) {
		if client == nil {
			return pfx.Err(fmt.Errorf("%s: a Google Storage client is required to write this path", path))
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return pfx.Err(err)
		}

		// Cancelling the context before Close aborts the upload.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
		w.ContentType = contentType

		if err := write(w); err != nil {
			cancel()
			w.Close()
			return pfx.Err(err)
		}

		if err := w.Close(); err != nil {
			return pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return nil
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pfx.Err(err)
		}
	}

	// Buffer locally so a failed write never leaves a truncated file behind.
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return pfx.Err(err)
	}

	if err := os.WriteFile(expanded, buf.Bytes(), 0644); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// JoinPath joins an output directory (local or gs://) with a file name.
func JoinPath(dir, name string) string {
	if IsGoogleStoragePath(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}

	return filepath.Join(dir, name)
}

// StorageClientFor returns a Google Storage client if any of paths is a
// gs:// path, and nil otherwise.
func StorageClientFor(ctx context.Context, paths ...string) (*storage.Client, error) {
	for _, path := range paths {
		if IsGoogleStoragePath(path) {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return nil, pfx.Err(err)
			}

			return client, nil
		}
	}

	return nil, nil
}
