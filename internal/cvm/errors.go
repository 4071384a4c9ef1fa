package cvm

import "github.com/rotisserie/eris"

var (
	// ErrUnknownDocType is returned for document types other than ITR and FRE.
	ErrUnknownDocType = eris.New("cvm: unknown document type")
	// ErrUpstream is returned when the portal cannot be reached or answers with a non-success status.
	ErrUpstream = eris.New("cvm: upstream fetch failed")
	// ErrNoArchives is returned when a directory listing advertises no ZIP archive.
	ErrNoArchives = eris.New("cvm: no archives listed")
	// ErrArchiveNotFound is returned when no listed archive matches the requested year.
	ErrArchiveNotFound = eris.New("cvm: no archive for year")
	// ErrBadArchive is returned when downloaded bytes are not a valid ZIP archive.
	ErrBadArchive = eris.New("cvm: malformed archive")
	// ErrFilesystem is returned for local directory or file failures during extraction.
	ErrFilesystem = eris.New("cvm: filesystem error")

	// ErrNotFound is returned by ReadTable when the CSV does not exist.
	ErrNotFound = eris.New("cvm: csv not found")
	// ErrEmptyFile is returned by ReadTable when the CSV has no header row.
	ErrEmptyFile = eris.New("cvm: csv is empty")
	// ErrUnreadable is returned by ReadTable for any other read or parse failure.
	ErrUnreadable = eris.New("cvm: csv could not be parsed")
)

// IsNotFound reports whether err means the portal has no archive for the
// request, as opposed to the portal being unreachable.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNoArchives) || eris.Is(err, ErrArchiveNotFound) || eris.Is(err, ErrUnknownDocType)
}
