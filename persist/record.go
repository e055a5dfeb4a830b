// Package persist implements component G: serializing a program.Program
// to and from the on-disk record shapes spec §4.F/§6 describe. Mnemonics
// are stored as strings rather than the process-local isa.ExecutorID
// (spec §4.C's "must survive persistence"), so decoding re-resolves each
// mnemonic against whatever isa.Set the caller passes in.
package persist

import (
	"pseudoasm"
	"pseudoasm/isa"
	"pseudoasm/operand"
	"pseudoasm/program"
)

// Record is one addressed instruction as it appears on disk.
type Record struct {
	Address  pseudoasm.Cell `json:"address" yaml:"address" toml:"address"`
	Mnemonic string         `json:"mnemonic" yaml:"mnemonic" toml:"mnemonic"`
	Operand  OperandRecord  `json:"operand" yaml:"operand" toml:"operand"`
}

// OperandRecord is operand.Operand's tagged-union shape flattened for
// serialization: Kind discriminates which of the other fields are
// meaningful, per spec §6's "operand tagging must be explicit."
type OperandRecord struct {
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	Immediate  pseudoasm.Cell  `json:"immediate,omitempty" yaml:"immediate,omitempty" toml:"immediate,omitempty"`
	Address    pseudoasm.Cell  `json:"address,omitempty" yaml:"address,omitempty" toml:"address,omitempty"`
	RegIndex   int             `json:"reg_index,omitempty" yaml:"reg_index,omitempty" toml:"reg_index,omitempty"`
	Special    string          `json:"special,omitempty" yaml:"special,omitempty" toml:"special,omitempty"`
	ViaSpecial bool            `json:"via_special,omitempty" yaml:"via_special,omitempty" toml:"via_special,omitempty"`
	Label      string          `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Fill       pseudoasm.Cell  `json:"fill,omitempty" yaml:"fill,omitempty" toml:"fill,omitempty"`
	Count      int             `json:"count,omitempty" yaml:"count,omitempty" toml:"count,omitempty"`
	Multi      []OperandRecord `json:"multi,omitempty" yaml:"multi,omitempty" toml:"multi,omitempty"`
}

// DataRecord is one initial-memory cell (spec §4.D's data declarations).
type DataRecord struct {
	Address pseudoasm.Cell `json:"address" yaml:"address" toml:"address"`
	Value   pseudoasm.Cell `json:"value" yaml:"value" toml:"value"`
}

// DebugRecord is one instruction's retained source-line/label debuginfo,
// present only when the caller asked for it (spec §4.D/§6).
type DebugRecord struct {
	Address    pseudoasm.Cell `json:"address" yaml:"address" toml:"address"`
	SourceLine uint32         `json:"source_line" yaml:"source_line" toml:"source_line"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
}

// Document is the whole-Program envelope every format encodes.
type Document struct {
	Records []Record     `json:"records" yaml:"records" toml:"records"`
	Data    []DataRecord `json:"data,omitempty" yaml:"data,omitempty" toml:"data,omitempty"`
	Debug   []DebugRecord `json:"debug,omitempty" yaml:"debug,omitempty" toml:"debug,omitempty"`
	Globals []string     `json:"globals,omitempty" yaml:"globals,omitempty" toml:"globals,omitempty"`
}

// toDocument flattens prog into the on-disk envelope. Debuginfo is only
// carried over when includeDebug is set, even if prog itself has it.
func toDocument(prog *program.Program, includeDebug bool) Document {
	var doc Document
	doc.Records = make([]Record, 0, len(prog.Order))
	for _, addr := range prog.Order {
		e := prog.Entries[addr]
		doc.Records = append(doc.Records, Record{
			Address:  e.Address,
			Mnemonic: e.Instruction.Mnemonic,
			Operand:  toOperandRecord(e.Instruction.Operand),
		})
	}
	for addr, v := range prog.Data {
		doc.Data = append(doc.Data, DataRecord{Address: addr, Value: v})
	}

	if includeDebug && prog.Debug != nil {
		for addr, line := range prog.Debug.SourceLine {
			doc.Debug = append(doc.Debug, DebugRecord{
				Address:    addr,
				SourceLine: line,
				Label:      prog.Debug.Label[addr],
			})
		}
		for name := range prog.Debug.Globals {
			doc.Globals = append(doc.Globals, name)
		}
	}
	return doc
}

// fromDocument rebuilds a Program from doc, resolving each record's
// mnemonic against set.
func fromDocument(doc Document, set isa.Set) (*program.Program, error) {
	entries := make([]program.Entry, 0, len(doc.Records))
	for _, rec := range doc.Records {
		def, ok := set.Lookup(rec.Mnemonic)
		if !ok {
			return nil, &pseudoasm.PersistError{Err: &pseudoasm.ParseError{Msg: "unknown mnemonic on decode", Label: rec.Mnemonic}}
		}
		op, err := fromOperandRecord(rec.Operand)
		if err != nil {
			return nil, &pseudoasm.PersistError{Err: err}
		}
		entries = append(entries, program.Entry{
			Address:     rec.Address,
			Instruction: program.Instruction{ExecutorID: def.ID, Mnemonic: def.Mnemonic, Operand: op},
		})
	}

	data := make(map[pseudoasm.Cell]pseudoasm.Cell, len(doc.Data))
	for _, d := range doc.Data {
		data[d.Address] = d.Value
	}

	var debug *program.DebugInfo
	if len(doc.Debug) > 0 || len(doc.Globals) > 0 {
		debug = &program.DebugInfo{
			SourceLine: make(map[pseudoasm.Cell]uint32),
			Label:      make(map[pseudoasm.Cell]string),
			Globals:    make(map[string]bool),
		}
		for _, d := range doc.Debug {
			debug.SourceLine[d.Address] = d.SourceLine
			if d.Label != "" {
				debug.Label[d.Address] = d.Label
			}
		}
		for _, g := range doc.Globals {
			debug.Globals[g] = true
		}
	}

	return program.FromEntries(entries, data, debug), nil
}

func toOperandRecord(op operand.Operand) OperandRecord {
	r := OperandRecord{Kind: op.Kind.String()}
	switch op.Kind {
	case operand.Immediate:
		r.Immediate = op.Immediate
	case operand.Direct:
		r.Address = op.Address
	case operand.Indirect:
		r.RegIndex = op.RegIndex
		r.ViaSpecial = op.ViaSpecial
		if op.ViaSpecial {
			r.Special = op.Special.String()
		}
	case operand.Register:
		r.RegIndex = op.RegIndex
	case operand.Special:
		r.Special = op.Special.String()
	case operand.Label:
		r.Label = op.Label
	case operand.LinearArray:
		r.Fill = op.Fill
		r.Count = op.Count
	case operand.MultiOperand:
		r.Multi = make([]OperandRecord, len(op.Multi))
		for i, sub := range op.Multi {
			r.Multi[i] = toOperandRecord(sub)
		}
	}
	return r
}

func fromOperandRecord(r OperandRecord) (operand.Operand, error) {
	switch r.Kind {
	case "none":
		return operand.Operand{}, nil
	case "immediate":
		return operand.Operand{Kind: operand.Immediate, Immediate: r.Immediate}, nil
	case "direct":
		return operand.Operand{Kind: operand.Direct, Address: r.Address}, nil
	case "indirect":
		op := operand.Operand{Kind: operand.Indirect, RegIndex: r.RegIndex, ViaSpecial: r.ViaSpecial}
		if r.ViaSpecial {
			s, ok := parseSpecial(r.Special)
			if !ok {
				return operand.Operand{}, &pseudoasm.ParseError{Msg: "unknown special register on decode", Label: r.Special}
			}
			op.Special = s
		}
		return op, nil
	case "register":
		return operand.Operand{Kind: operand.Register, RegIndex: r.RegIndex}, nil
	case "special":
		s, ok := parseSpecial(r.Special)
		if !ok {
			return operand.Operand{}, &pseudoasm.ParseError{Msg: "unknown special register on decode", Label: r.Special}
		}
		return operand.Operand{Kind: operand.Special, Special: s}, nil
	case "label":
		return operand.Operand{Kind: operand.Label, Label: r.Label}, nil
	case "linear-array":
		return operand.Operand{Kind: operand.LinearArray, Fill: r.Fill, Count: r.Count}, nil
	case "multi-operand":
		sub := make([]operand.Operand, len(r.Multi))
		for i, m := range r.Multi {
			op, err := fromOperandRecord(m)
			if err != nil {
				return operand.Operand{}, err
			}
			sub[i] = op
		}
		return operand.Operand{Kind: operand.MultiOperand, Multi: sub}, nil
	default:
		return operand.Operand{}, &pseudoasm.ParseError{Msg: "unknown operand kind on decode", Label: r.Kind}
	}
}

func parseSpecial(s string) (operand.SpecialReg, bool) {
	switch s {
	case "ACC":
		return operand.ACC, true
	case "IX":
		return operand.IX, true
	case "CMP":
		return operand.CMP, true
	default:
		return 0, false
	}
}
