package cvm

import (
	"strings"
	"unicode"
)

// UnknownYear is the directory name used when no year can be read from an archive filename.
const UnknownYear = "unknown_year"

// ArchiveDescriptor identifies one archive advertised by the portal.
type ArchiveDescriptor struct {
	DocType  DocType
	Year     string
	FileName string
}

// NewArchiveDescriptor derives the year from fileName.
func NewArchiveDescriptor(doc DocType, fileName string) ArchiveDescriptor {
	return ArchiveDescriptor{DocType: doc, Year: ArchiveYear(fileName), FileName: fileName}
}

// ArchiveYear extracts the year from an archive filename: every digit in the
// name is collected and the first four are kept, so "dfp_2010_2011.zip" yields 2010.
// Names with fewer than four digits yield UnknownYear.
func ArchiveYear(fileName string) string {
	var digits strings.Builder
	for _, r := range fileName {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < 4 {
		return UnknownYear
	}
	return digits.String()[:4]
}
