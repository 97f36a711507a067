package trajectory

// Record is the state captured by one Append call.
type Record struct {
	Time  float64
	Step  int
	Types []string
}

// Buffer holds the records appended since the last flush, in append order.
type Buffer struct {
	records []Record
	bytes   int
}

func (b *Buffer) Add(r Record) {
	b.records = append(b.records, r)
	b.bytes += recordSize(r.Types)
}

func (b *Buffer) Len() int { return len(b.records) }

// Bytes is the summed byte length of every buffered label.
func (b *Buffer) Bytes() int { return b.bytes }

// Records returns the buffered records. The slice is only valid until the
// next Add or Reset.
func (b *Buffer) Records() []Record { return b.records }

func (b *Buffer) Reset() {
	clear(b.records)
	b.records = b.records[:0]
	b.bytes = 0
}
