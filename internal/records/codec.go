package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ContentType is the media type of a serialized record stream.
const ContentType = "application/x-ndjson"

// Parse decodes a JSON Lines stream into records. Lines end in "\n" or "\r\n";
// blank lines are skipped. Each remaining line must hold exactly one JSON object
// with only the record fields and a non-empty language. The first bad line fails
// the whole parse with a *DecodeError.
func Parse(data []byte) ([]TextRecord, error) {
	var out []TextRecord

	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, err := decodeLine(line)
		if err != nil {
			return nil, &DecodeError{
				Line:    i + 1,
				Content: string(line),
				Err:     err,
			}
		}
		out = append(out, rec)
	}

	return out, nil
}

// Serialize encodes records as JSON Lines in input order, joined by a single
// "\n" with no trailing newline.
func Serialize(recs []TextRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return nil, fmt.Errorf("encode record %d (id %q): %w", i, recs[i].ID, err)
		}
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeLine(line []byte) (TextRecord, error) {
	var rec TextRecord

	trimmed := bytes.TrimSpace(line)
	if trimmed[0] != '{' {
		return rec, fmt.Errorf("%w: expected JSON object", ErrMalformedLine)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&rec); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return rec, fmt.Errorf("%w: trailing data after object", ErrMalformedLine)
	}

	if rec.Language == "" {
		return rec, ErrMissingLanguage
	}
	if rec.Sentiment != "" && !rec.Sentiment.Valid() {
		return rec, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedLine, rec.Sentiment)
	}

	return rec, nil
}
