package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Marshal encodes v without HTML escaping so that text round-trips byte for byte.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func Decode(r io.Reader, model any) error {
	if r == nil {
		return fmt.Errorf("missing body")
	}

	return json.NewDecoder(r).Decode(model)
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
