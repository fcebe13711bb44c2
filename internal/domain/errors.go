package domain

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrorKind classifies a failure the user can fix by picking another file
// or adjusting the review options.
type ErrorKind int

const (
	FileTooLarge ErrorKind = iota + 1
	UnsupportedType
	CorruptFile
	MissingColumns
	InvalidRange
)

func (k ErrorKind) String() string {
	switch k {
	case FileTooLarge:
		return "file too large"
	case UnsupportedType:
		return "unsupported type"
	case CorruptFile:
		return "corrupt file"
	case MissingColumns:
		return "missing columns"
	case InvalidRange:
		return "invalid range"
	default:
		return "unknown"
	}
}

// ImportError is returned by validation, decoding and deck preparation.
// Its message is meant to be shown to the user as is.
type ImportError struct {
	Kind ErrorKind
	// Max is the size limit for FileTooLarge and the deck length for
	// InvalidRange.
	Max int64
	Err error
}

// Sentinels for use with errors.Is. Only the Kind is compared.
var (
	ErrFileTooLarge    = &ImportError{Kind: FileTooLarge}
	ErrUnsupportedType = &ImportError{Kind: UnsupportedType}
	ErrCorruptFile     = &ImportError{Kind: CorruptFile}
	ErrMissingColumns  = &ImportError{Kind: MissingColumns}
	ErrInvalidRange    = &ImportError{Kind: InvalidRange}
)

func (e *ImportError) Error() string {
	switch e.Kind {
	case FileTooLarge:
		return fmt.Sprintf("File size exceeds the maximum limit of %s.", humanize.IBytes(uint64(e.Max)))
	case UnsupportedType:
		return "Unsupported file type. Please upload an XLS or XLSX file."
	case CorruptFile:
		return "An error occurred while reading the file. Please try again."
	case MissingColumns:
		return "Invalid file format. Ensure 'front' and 'back' columns exist."
	case InvalidRange:
		return fmt.Sprintf("Invalid range. Please enter a range between 1 and %d.", e.Max)
	default:
		return "Import failed."
	}
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an ImportError of the same kind.
func (e *ImportError) Is(target error) bool {
	t, ok := target.(*ImportError)
	return ok && t.Kind == e.Kind
}
