package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func HttpError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// HttpErrorWith writes an error body carrying extra detail fields.
func HttpErrorWith(w http.ResponseWriter, status int, msg string, detail map[string]any) {
	body := make(map[string]any, len(detail)+1)
	for k, v := range detail {
		body[k] = v
	}
	body["error"] = msg
	WriteJSON(w, status, body)
}
