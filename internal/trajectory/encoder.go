package trajectory

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	Preamble = "# KMCLib Trajectory"
	Version  = "2013.1.0"

	// MaxRowWidth bounds a rendered types row. Only a single label wider than
	// the row can exceed it.
	MaxRowWidth = 70

	sitesPrefix = "sites=["
	typesPrefix = "types.append(["
)

var (
	sitesIndent = strings.Repeat(" ", len(sitesPrefix))
	typesIndent = strings.Repeat(" ", len(typesPrefix))
)

// EncodeHeader writes the preamble, the site list and the empty
// times/steps/types declarations.
func EncodeHeader(w io.Writer, sites [][3]float64, created time.Time) error {
	var b strings.Builder

	b.WriteString(Preamble + "\n")
	fmt.Fprintf(&b, "version=%q\n", Version)
	fmt.Fprintf(&b, "creation_time=%q\n", created.Format(time.ANSIC))

	b.WriteString(sitesPrefix)
	for i, s := range sites {
		fmt.Fprintf(&b, "[%15.6f,%15.6f,%15.6f]", s[0], s[1], s[2])
		if i < len(sites)-1 {
			b.WriteString(",\n" + sitesIndent)
		}
	}
	b.WriteString("]\n")

	b.WriteString("times=[]\n")
	b.WriteString("steps=[]\n")
	b.WriteString("types=[]\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// EncodeRecords writes one times/steps/types append triple per record, in
// order.
func EncodeRecords(w io.Writer, records []Record) error {
	var b strings.Builder
	for _, r := range records {
		encodeRecord(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func encodeRecord(b *strings.Builder, r Record) {
	b.WriteString("times.append(")
	b.WriteString(strconv.FormatFloat(r.Time, 'f', 6, 64))
	b.WriteString(")\n")

	b.WriteString("steps.append(")
	b.WriteString(strconv.Itoa(r.Step))
	b.WriteString(")\n")

	encodeTypes(b, r.Types)
}

// encodeTypes renders types.append([...]) wrapping between elements so that
// no row is wider than MaxRowWidth. Continuation rows start under the
// opening bracket's first element.
func encodeTypes(b *strings.Builder, types []string) {
	b.WriteString(typesPrefix)
	if len(types) == 0 {
		b.WriteString("])\n")
		return
	}

	row := len(typesPrefix)
	last := len(types) - 1
	for i, t := range types {
		width := len(t) + 2
		if i == last {
			width += len("])")
		} else {
			width += len(",")
		}

		if i > 0 && row+width > MaxRowWidth {
			b.WriteString("\n" + typesIndent)
			row = len(typesIndent)
		}

		b.WriteByte('"')
		b.WriteString(t)
		b.WriteByte('"')
		if i == last {
			b.WriteString("])")
		} else {
			b.WriteByte(',')
		}
		row += width
	}
	b.WriteByte('\n')
}

// recordSize is the buffer accounting for one record: the byte length of
// its labels.
func recordSize(types []string) int {
	n := 0
	for _, t := range types {
		n += len(t)
	}
	return n
}

func validLabel(t string) bool {
	return !strings.ContainsAny(t, "\"\n\r")
}
