package siwx

import "testing"

const sample = `app.example.com wants you to sign in with your Ethereum account:
0x1234567890abcdef1234567890abcdef12345678

URI: https://app.example.com/login
Version: 1
Chain ID: 10
Nonce: eu0123456789abcdef0123456789abcdef
Issued At: 2026-09-01T10:00:00Z`

func TestParse(t *testing.T) {
	m := Parse(sample)
	if m.Domain != "app.example.com" {
		t.Errorf("Domain = %q", m.Domain)
	}
	if m.Address != "0x1234567890abcdef1234567890abcdef12345678" {
		t.Errorf("Address = %q", m.Address)
	}
	if m.Nonce != "eu0123456789abcdef0123456789abcdef" {
		t.Errorf("Nonce = %q", m.Nonce)
	}
	if m.ChainID != "10" {
		t.Errorf("ChainID = %q", m.ChainID)
	}
	if m.URI != "https://app.example.com/login" {
		t.Errorf("URI = %q", m.URI)
	}
}

func TestParseMissingNonce(t *testing.T) {
	m := Parse(`app.example.com wants you to sign in with your Ethereum account:
0xabc

Version: 1
Issued At: 2026-09-01T10:00:00Z`)
	if m.Nonce != "" {
		t.Errorf("Nonce = %q, want vacío", m.Nonce)
	}
	if m.Address != "0xabc" {
		t.Errorf("Address = %q", m.Address)
	}
}

func TestParseGarbage(t *testing.T) {
	m := Parse("esto no es un mensaje SIWX")
	if m.Nonce != "" || m.Domain != "" || m.Address != "" {
		t.Errorf("parse de basura tiene que dar campos vacíos: %+v", m)
	}
}

func TestParseCRLF(t *testing.T) {
	m := Parse("app.example.com wants you to sign in with your Ethereum account:\r\n0xabc\r\n\r\nNonce: n1\r\nIssued At: x")
	if m.Nonce != "n1" || m.Address != "0xabc" {
		t.Errorf("CRLF: %+v", m)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	in := Message{
		Domain:   "app.example.com",
		Address:  "0xabc",
		URI:      "https://app.example.com",
		ChainID:  "10",
		Nonce:    "xx00112233445566778899aabbccddeeff",
		IssuedAt: "2026-09-01T10:00:00Z",
	}
	out := Parse(Format(in))
	if out.Domain != in.Domain || out.Address != in.Address || out.Nonce != in.Nonce {
		t.Errorf("round trip: %+v", out)
	}
}
