package manifest

// Canonical column names used after normalization, independent of mode.
const (
	ColID               = "id"
	ColID2              = "id2"
	ColCollectionDate   = "collection_date"
	ColOrganism         = "organism"
	ColRelevance        = "relevance"
	ColRunID            = "run_id"
	ColIlluminaR1       = "illumina_r1"
	ColIlluminaR2       = "illumina_r2"
	ColNanopore         = "nanopore"
	ColDoradoModel      = "dorado_model"
	ColOutbreakID       = "outbreak_id"
	ColComment          = "comment"
	ColConfirmationNote = "confirmation_note"
)

// Field is a passthrough cell for a column with no canonical meaning.
type Field struct {
	Name  string
	Value string
}

// Sample is one manifest row after normalization. Canonical columns have
// named fields; every other column is kept in Extra in header order so the
// row can be written back without loss.
type Sample struct {
	Row int // 1-based line in the file; the header is line 1

	ID             string
	ID2            string
	CollectionDate string
	Organism       string
	Relevance      string
	RunID          string
	IlluminaR1     string
	IlluminaR2     string
	Nanopore       string
	DoradoModel    string

	Extra []Field
}

func (s *Sample) field(col string) *string {
	switch col {
	case ColID:
		return &s.ID
	case ColID2:
		return &s.ID2
	case ColCollectionDate:
		return &s.CollectionDate
	case ColOrganism:
		return &s.Organism
	case ColRelevance:
		return &s.Relevance
	case ColRunID:
		return &s.RunID
	case ColIlluminaR1:
		return &s.IlluminaR1
	case ColIlluminaR2:
		return &s.IlluminaR2
	case ColNanopore:
		return &s.Nanopore
	case ColDoradoModel:
		return &s.DoradoModel
	}
	for i := range s.Extra {
		if s.Extra[i].Name == col {
			return &s.Extra[i].Value
		}
	}
	return nil
}

// Get returns the value of column col, or "" when the row has no such column.
func (s *Sample) Get(col string) string {
	if p := s.field(col); p != nil {
		return *p
	}
	return ""
}

// Set stores value under column col, appending a passthrough field when
// col is neither canonical nor already present.
func (s *Sample) Set(col, value string) {
	if p := s.field(col); p != nil {
		*p = value
		return
	}
	s.Extra = append(s.Extra, Field{Name: col, Value: value})
}

// Samples converts each table row into a Sample.
func Samples(t *Table) []*Sample {
	out := make([]*Sample, len(t.Rows))
	for i, row := range t.Rows {
		s := &Sample{Row: i + 2}
		for j, col := range t.Header {
			s.Set(col, row[j])
		}
		out[i] = s
	}
	return out
}

// FromSamples builds a table with the given header from samples, reading
// each column back through Sample.Get.
func FromSamples(header []string, samples []*Sample, delim rune) *Table {
	t := &Table{
		Header:    append([]string(nil), header...),
		Rows:      make([][]string, len(samples)),
		Delimiter: delim,
	}
	for i, s := range samples {
		row := make([]string, len(header))
		for j, col := range header {
			row[j] = s.Get(col)
		}
		t.Rows[i] = row
	}
	return t
}
