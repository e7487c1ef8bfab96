package service

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrDocumentRequired = errors.New("contract document is required")
	ErrDocumentTooLarge = errors.New("contract document exceeds size limit")
	ErrInvalidDocument  = errors.New("contract document is not valid base64")
)

// DecodeContractDocument turns a base64 payload into document bytes. An
// optional data URI prefix ("data:application/pdf;base64,") is stripped
// first. Size accounting uses decoded bytes; the cheap length pre-check
// rejects hopeless payloads before decoding them.
func DecodeContractDocument(encoded string, maxBytes int64) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ";base64,")
		if idx < 0 {
			return nil, ErrInvalidDocument
		}
		encoded = encoded[idx+len(";base64,"):]
	}
	if encoded == "" {
		return nil, ErrDocumentRequired
	}

	// Decoded size is at most 3/4 of the encoded length.
	if int64(len(encoded))/4*3 > maxBytes+3 {
		return nil, ErrDocumentTooLarge
	}

	doc, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		doc, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, ErrInvalidDocument
	}
	if len(doc) == 0 {
		return nil, ErrDocumentRequired
	}
	if int64(len(doc)) > maxBytes {
		return nil, ErrDocumentTooLarge
	}
	return doc, nil
}
