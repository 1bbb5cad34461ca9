package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"logrero/src/contracts"
)

// decodeRecordRequest reads one LogRecord from a request body, inflating it
// first when it is gzip encoded.
func decodeRecordRequest(r *http.Request) (contracts.LogRecord, error) {
	var body io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return contracts.LogRecord{}, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()
		body = zr
	}

	data, err := io.ReadAll(io.LimitReader(body, maxRecordBody+1))
	if err != nil {
		return contracts.LogRecord{}, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > maxRecordBody {
		return contracts.LogRecord{}, errors.New("record exceeds 1 MiB")
	}
	return decodeRecord(data)
}

// decodeRecord parses a record object. Older agents sent the object as a JSON
// string holding the encoded record, which is unwrapped first.
func decodeRecord(data []byte) (contracts.LogRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return contracts.LogRecord{}, errors.New("empty record")
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return contracts.LogRecord{}, fmt.Errorf("invalid record: %w", err)
		}
		data = []byte(inner)
	}

	var record contracts.LogRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return contracts.LogRecord{}, fmt.Errorf("invalid record: %w", err)
	}
	return record, nil
}
