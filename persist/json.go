package persist

import "encoding/json"

func encodeJSON(doc Document, o encodeOptions) ([]byte, error) {
	if o.minify {
		return json.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func decodeJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
