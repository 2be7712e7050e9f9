package assets

import "fmt"

// ErrorKind classifies an asset failure.
type ErrorKind int

const (
	// KindNetwork covers transport and filesystem failures.
	KindNetwork ErrorKind = iota
	// KindParse covers payloads that are not valid JSON or glTF.
	KindParse
	// KindSchema covers payloads that decode but violate the expected shape.
	KindSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindSchema:
		return "schema"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// AssetLoadError reports which asset failed and how.
type AssetLoadError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load %s: %s error: %v", e.Path, e.Kind, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

func newLoadError(kind ErrorKind, path string, err error) *AssetLoadError {
	return &AssetLoadError{Kind: kind, Path: path, Err: err}
}
