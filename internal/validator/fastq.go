package validator

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
)

// headerBufSize bounds how much of a FASTQ file is read.
const headerBufSize = 4096

var gzipMagic = []byte{0x1f, 0x8b}

// fileProblem describes why a referenced sequencing file is unusable.
type fileProblem struct {
	missing bool // the file does not exist; severity is configurable
	msg     string
}

// probeFile checks that path exists, is a non-empty regular file and, when
// inspect is set, that its first record looks like FASTQ. Gzip input is
// decompressed lazily and never read past the first line.
func probeFile(path string, inspect bool) *fileProblem {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &fileProblem{missing: true, msg: fmt.Sprintf("file not found: %s", path)}
	case errors.Is(err, fs.ErrPermission):
		return &fileProblem{msg: fmt.Sprintf("permission denied: %s", path)}
	case err != nil:
		return &fileProblem{msg: fmt.Sprintf("cannot access %s: %v", path, err)}
	case info.IsDir():
		return &fileProblem{msg: fmt.Sprintf("%s is a directory, not a FASTQ file", path)}
	case info.Size() == 0:
		return &fileProblem{msg: fmt.Sprintf("file is empty: %s", path)}
	}

	if !inspect {
		return nil
	}
	if err := sniffFastq(path); err != nil {
		return &fileProblem{msg: fmt.Sprintf("%s: %v", path, err)}
	}
	return nil
}

func sniffFastq(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied")
		}
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	compressed := false
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("corrupt gzip stream: %v", err)
		}
		defer zr.Close()
		r = zr
		compressed = true
	}

	// Only the header line is inspected. A sequence line of a long read can
	// be far larger than the buffer and is never reached.
	line, err := bufio.NewReaderSize(r, headerBufSize).ReadSlice('\n')
	switch {
	case err == nil, errors.Is(err, bufio.ErrBufferFull):
	case errors.Is(err, io.EOF) && len(line) > 0:
	case errors.Is(err, io.EOF):
		return fmt.Errorf("no FASTQ records")
	case compressed:
		return fmt.Errorf("corrupt gzip stream: %v", err)
	default:
		return fmt.Errorf("read failed: %v", err)
	}
	if !bytes.HasPrefix(line, []byte("@")) {
		return fmt.Errorf("not a FASTQ file (first line does not start with '@')")
	}
	return nil
}
