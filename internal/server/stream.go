package server

import (
	"encoding/json"
	"net/http"
)

// errorMarker replaces the output text of a paragraph whose invocation failed
// or timed out.
const errorMarker = "(error)"

// ndjsonWriter appends one JSON record per line to the response, flushing
// after each so the browser sees results as they are emitted.
type ndjsonWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	f, _ := w.(http.Flusher)
	return &ndjsonWriter{w: w, f: f}
}

func (nw *ndjsonWriter) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := nw.w.Write(append(b, '\n')); err != nil {
		return err
	}
	if nw.f != nil {
		nw.f.Flush()
	}
	return nil
}

// fault terminates the stream with the stream_error line. Write failures are
// ignored: the connection is going away either way.
func (nw *ndjsonWriter) fault() {
	_ = nw.writeLine(map[string]string{"error": "stream_error"})
}

type fixLine struct {
	Index     int    `json:"index"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

type translateLine struct {
	Index      int    `json:"index"`
	Translated string `json:"translated"`
}
