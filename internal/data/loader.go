package data

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	perrors "shotclassifier/internal/errors"
)

// Fingerprint identifies the file contents a table was loaded from.
type Fingerprint struct {
	Size    int64
	ModUnix int64
	Digest  uint64
}

// LoadFile reads path as Parquet when it has a .parquet extension and as
// delimited text otherwise, returning the table and a content fingerprint.
func LoadFile(ctx context.Context, path string, options CSVOptions) (*Table, Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Fingerprint{}, perrors.WrapInput("Load", "opening dataset", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, Fingerprint{}, perrors.WrapInput("Load", "stat dataset", err)
	}

	digest := xxhash.New()
	body := io.TeeReader(f, digest)

	var t *Table
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		t, err = NewParquetReader(body).Read(ctx)
	} else {
		t, err = NewCSVReader(body, options).Read()
	}
	if err != nil {
		return nil, Fingerprint{}, err
	}

	return t, Fingerprint{
		Size:    info.Size(),
		ModUnix: info.ModTime().UnixNano(),
		Digest:  digest.Sum64(),
	}, nil
}
