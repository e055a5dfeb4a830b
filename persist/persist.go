package persist

import (
	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/program"
)

// Encode serializes prog in the given format, per spec §4.F.
func Encode(prog *program.Program, format Format, opts ...Option) ([]byte, error) {
	o := resolveOptions(opts)
	doc := toDocument(prog, o.debugInfo)

	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = encodeJSON(doc, o)
	case FormatYAML:
		out, err = encodeYAML(doc, o)
	case FormatRON:
		out, err = encodeRON(doc, o)
	case FormatBinary:
		out, err = encodeBinary(doc, o)
	default:
		return nil, &pseudoasm.PersistError{Format: string(format), Err: &pseudoasm.ParseError{Msg: "unknown persistence format"}}
	}
	if err != nil {
		return nil, &pseudoasm.PersistError{Format: string(format), Err: err}
	}
	return out, nil
}

// Decode deserializes a Program previously produced by Encode, resolving
// every persisted mnemonic against set.
func Decode(data []byte, format Format, set isa.Set) (*program.Program, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = decodeJSON(data)
	case FormatYAML:
		doc, err = decodeYAML(data)
	case FormatRON:
		doc, err = decodeRON(data)
	case FormatBinary:
		doc, err = decodeBinary(data)
	default:
		return nil, &pseudoasm.PersistError{Format: string(format), Err: &pseudoasm.ParseError{Msg: "unknown persistence format"}}
	}
	if err != nil {
		return nil, &pseudoasm.PersistError{Format: string(format), Err: err}
	}
	prog, err := fromDocument(doc, set)
	if err != nil {
		return nil, &pseudoasm.PersistError{Format: string(format), Err: err}
	}
	return prog, nil
}
