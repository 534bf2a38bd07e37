package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// FastqRecord is a single well-formed FASTQ record.
const FastqRecord = "@read1\nACGTACGTAC\n+\nIIIIIIIIII\n"

// WriteFastq writes a plain FASTQ file holding FastqRecord.
func WriteFastq(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, FastqRecord)
}

// WriteFastqGz writes a gzip-compressed FASTQ file holding content, or
// FastqRecord when content is empty.
func WriteFastqGz(t *testing.T, dir, name, content string) string {
	t.Helper()
	if content == "" {
		content = FastqRecord
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("failed to compress fixture: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to compress fixture: %v", err)
	}
	return WriteFile(t, dir, name, buf.String())
}

// Manifest joins header and rows with delim and writes them to dir/name.
// Cells are written verbatim, so they must not contain delim.
func Manifest(t *testing.T, dir, name string, delim string, header []string, rows ...[]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, delim))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, delim))
		b.WriteString("\n")
	}
	return WriteFile(t, dir, name, b.String())
}

// PairedReads writes gzip FASTQ files <sample>_R1.fastq.gz and
// <sample>_R2.fastq.gz into dir and returns their paths.
func PairedReads(t *testing.T, dir, sample string) (string, string) {
	t.Helper()
	r1 := WriteFastqGz(t, dir, sample+"_R1.fastq.gz", "")
	r2 := WriteFastqGz(t, dir, sample+"_R2.fastq.gz", "")
	return r1, r2
}
