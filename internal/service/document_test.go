package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestDecodeContractDocumentPlainBase64(t *testing.T) {
	payload := []byte("%PDF-1.4 minimal")
	doc, err := DecodeContractDocument(base64.StdEncoding.EncodeToString(payload), 1<<20)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(doc, payload) {
		t.Fatal("decoded bytes mismatch")
	}
}

func TestDecodeContractDocumentStripsDataURIPrefix(t *testing.T) {
	payload := []byte("%PDF-1.4 with prefix")
	encoded := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(payload)
	doc, err := DecodeContractDocument(encoded, 1<<20)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(doc, payload) {
		t.Fatal("decoded bytes mismatch after prefix strip")
	}
}

func TestDecodeContractDocumentUnpaddedBase64(t *testing.T) {
	payload := []byte("12345")
	encoded := base64.RawStdEncoding.EncodeToString(payload)
	doc, err := DecodeContractDocument(encoded, 1<<20)
	if err != nil {
		t.Fatalf("decode unpadded: %v", err)
	}
	if !bytes.Equal(doc, payload) {
		t.Fatal("decoded bytes mismatch for unpadded input")
	}
}

func TestDecodeContractDocumentSizeAccountingUsesDecodedLength(t *testing.T) {
	// 16 decoded bytes; limit 15 must reject, limit 16 must accept.
	payload := bytes.Repeat([]byte{0xAB}, 16)
	encoded := base64.StdEncoding.EncodeToString(payload)

	if _, err := DecodeContractDocument(encoded, 15); !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge at limit 15, got %v", err)
	}
	if _, err := DecodeContractDocument(encoded, 16); err != nil {
		t.Fatalf("expected accept at limit 16, got %v", err)
	}
}

func TestDecodeContractDocumentRejectsOversizedWithoutDecoding(t *testing.T) {
	// 50MiB of base64 against a 12MiB limit fails the length pre-check.
	encoded := strings.Repeat("A", 50<<20)
	if _, err := DecodeContractDocument(encoded, 12<<20); !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
}

func TestDecodeContractDocumentErrors(t *testing.T) {
	if _, err := DecodeContractDocument("", 1<<20); !errors.Is(err, ErrDocumentRequired) {
		t.Fatalf("expected ErrDocumentRequired for empty input, got %v", err)
	}
	if _, err := DecodeContractDocument("data:application/pdf;base64,", 1<<20); !errors.Is(err, ErrDocumentRequired) {
		t.Fatalf("expected ErrDocumentRequired for empty data URI, got %v", err)
	}
	if _, err := DecodeContractDocument("not base64!!", 1<<20); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := DecodeContractDocument("data:application/pdf,plain", 1<<20); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for non-base64 data URI, got %v", err)
	}
}
