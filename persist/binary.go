// The binary format is grounded on the teacher's ObjectFile.Write
// (shared/assembler/assembler.go / dulf.go): a fixed-size header followed
// by binary.Write records whose numeric fields are fixed-width and whose
// strings are length-prefixed, little-endian throughout. Unlike
// the teacher's ELF-flavoured object file, there is only ever one
// compiled Program here (spec §4.G), so there is no section table or
// relocation list — just records, data cells, and optional debuginfo.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var binMagic = [4]byte{'P', 'S', 'A', 'B'}

const binVersion = 1

func encodeBinary(doc Document, _ encodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	w := &buf

	if _, err := w.Write(binMagic[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(binVersion)); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(doc.Records))); err != nil {
		return nil, err
	}
	for _, rec := range doc.Records {
		if err := binary.Write(w, binary.LittleEndian, rec.Address); err != nil {
			return nil, err
		}
		if err := writeString(w, rec.Mnemonic); err != nil {
			return nil, err
		}
		if err := writeOperandRecord(w, rec.Operand); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(doc.Data))); err != nil {
		return nil, err
	}
	for _, d := range doc.Data {
		if err := binary.Write(w, binary.LittleEndian, d.Address); err != nil {
			return nil, err
		}
		if err := binary.Write(w, binary.LittleEndian, d.Value); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(doc.Debug))); err != nil {
		return nil, err
	}
	for _, d := range doc.Debug {
		if err := binary.Write(w, binary.LittleEndian, d.Address); err != nil {
			return nil, err
		}
		if err := binary.Write(w, binary.LittleEndian, d.SourceLine); err != nil {
			return nil, err
		}
		if err := writeString(w, d.Label); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(doc.Globals))); err != nil {
		return nil, err
	}
	for _, g := range doc.Globals {
		if err := writeString(w, g); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeBinary(data []byte) (Document, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Document{}, err
	}
	if magic != binMagic {
		return Document{}, fmt.Errorf("bad magic %q, not a pseudoasm binary artefact", magic)
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return Document{}, err
	}
	if version != binVersion {
		return Document{}, fmt.Errorf("unsupported binary version %d", version)
	}

	var doc Document

	var recordCount uint32
	if err := binary.Read(r, binary.LittleEndian, &recordCount); err != nil {
		return Document{}, err
	}
	doc.Records = make([]Record, recordCount)
	for i := range doc.Records {
		if err := binary.Read(r, binary.LittleEndian, &doc.Records[i].Address); err != nil {
			return Document{}, err
		}
		mnemonic, err := readString(r)
		if err != nil {
			return Document{}, err
		}
		doc.Records[i].Mnemonic = mnemonic
		op, err := readOperandRecord(r)
		if err != nil {
			return Document{}, err
		}
		doc.Records[i].Operand = op
	}

	var dataCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dataCount); err != nil {
		return Document{}, err
	}
	doc.Data = make([]DataRecord, dataCount)
	for i := range doc.Data {
		if err := binary.Read(r, binary.LittleEndian, &doc.Data[i].Address); err != nil {
			return Document{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &doc.Data[i].Value); err != nil {
			return Document{}, err
		}
	}

	var debugCount uint32
	if err := binary.Read(r, binary.LittleEndian, &debugCount); err != nil {
		return Document{}, err
	}
	doc.Debug = make([]DebugRecord, debugCount)
	for i := range doc.Debug {
		if err := binary.Read(r, binary.LittleEndian, &doc.Debug[i].Address); err != nil {
			return Document{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &doc.Debug[i].SourceLine); err != nil {
			return Document{}, err
		}
		label, err := readString(r)
		if err != nil {
			return Document{}, err
		}
		doc.Debug[i].Label = label
	}

	var globalCount uint32
	if err := binary.Read(r, binary.LittleEndian, &globalCount); err != nil {
		return Document{}, err
	}
	doc.Globals = make([]string, globalCount)
	for i := range doc.Globals {
		g, err := readString(r)
		if err != nil {
			return Document{}, err
		}
		doc.Globals[i] = g
	}

	return doc, nil
}

// writeOperandRecord encodes one OperandRecord, recursing into Multi for
// a MultiOperand.
func writeOperandRecord(w io.Writer, r OperandRecord) error {
	if err := writeString(w, r.Kind); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.Immediate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.Address); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(r.RegIndex)); err != nil {
		return err
	}
	if err := writeString(w, r.Special); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, boolByte(r.ViaSpecial)); err != nil {
		return err
	}
	if err := writeString(w, r.Label); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.Fill); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(r.Count)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(r.Multi))); err != nil {
		return err
	}
	for _, sub := range r.Multi {
		if err := writeOperandRecord(w, sub); err != nil {
			return err
		}
	}
	return nil
}

func readOperandRecord(r io.Reader) (OperandRecord, error) {
	var rec OperandRecord
	var err error
	if rec.Kind, err = readString(r); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Immediate); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Address); err != nil {
		return rec, err
	}
	var regIndex int32
	if err := binary.Read(r, binary.LittleEndian, &regIndex); err != nil {
		return rec, err
	}
	rec.RegIndex = int(regIndex)
	if rec.Special, err = readString(r); err != nil {
		return rec, err
	}
	var viaSpecial uint8
	if err := binary.Read(r, binary.LittleEndian, &viaSpecial); err != nil {
		return rec, err
	}
	rec.ViaSpecial = viaSpecial != 0
	if rec.Label, err = readString(r); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Fill); err != nil {
		return rec, err
	}
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return rec, err
	}
	rec.Count = int(count)
	var multiCount uint32
	if err := binary.Read(r, binary.LittleEndian, &multiCount); err != nil {
		return rec, err
	}
	rec.Multi = make([]OperandRecord, multiCount)
	for i := range rec.Multi {
		sub, err := readOperandRecord(r)
		if err != nil {
			return rec, err
		}
		rec.Multi[i] = sub
	}
	return rec, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
