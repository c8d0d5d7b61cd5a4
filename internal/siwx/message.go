// Package siwx parsea mensajes de prueba estilo EIP-4361 ("Sign-In With X"):
// el texto estructurado y legible que el cliente firma con la clave de su
// cuenta, embebiendo el nonce y el dominio destino.
package siwx

import (
	"fmt"
	"strings"
	"time"
)

// signInMarker es el sufijo de la primera línea de un mensaje SIWX.
const signInMarker = " wants you to sign in with your Ethereum account:"

// Message son los campos extraídos de un mensaje de prueba. El parseo es
// best-effort: campos ausentes quedan vacíos y es el orquestador quien
// decide qué ausencia es terminal (un nonce faltante rechaza sin llamar a
// nadie).
type Message struct {
	Domain   string
	Address  string
	URI      string
	Version  string
	ChainID  string
	Nonce    string
	IssuedAt string
}

// Parse extrae los campos de un mensaje SIWX. No valida firma ni semántica;
// eso es del verificador externo.
func Parse(raw string) Message {
	var m Message
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	for i, line := range lines {
		if strings.HasSuffix(line, signInMarker) {
			m.Domain = strings.TrimSuffix(line, signInMarker)
			if i+1 < len(lines) {
				m.Address = strings.TrimSpace(lines[i+1])
			}
			break
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "URI: "):
			m.URI = strings.TrimPrefix(line, "URI: ")
		case strings.HasPrefix(line, "Version: "):
			m.Version = strings.TrimPrefix(line, "Version: ")
		case strings.HasPrefix(line, "Chain ID: "):
			m.ChainID = strings.TrimPrefix(line, "Chain ID: ")
		case strings.HasPrefix(line, "Nonce: "):
			m.Nonce = strings.TrimPrefix(line, "Nonce: ")
		case strings.HasPrefix(line, "Issued At: "):
			m.IssuedAt = strings.TrimPrefix(line, "Issued At: ")
		}
	}
	return m
}

// Format arma el texto canónico de un mensaje SIWX. Lo usan los tests y el
// tooling; el broker en producción sólo parsea.
func Format(m Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n%s\n\n", m.Domain, signInMarker, m.Address)
	if m.URI != "" {
		fmt.Fprintf(&b, "URI: %s\n", m.URI)
	}
	version := m.Version
	if version == "" {
		version = "1"
	}
	fmt.Fprintf(&b, "Version: %s\n", version)
	if m.ChainID != "" {
		fmt.Fprintf(&b, "Chain ID: %s\n", m.ChainID)
	}
	if m.Nonce != "" {
		fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	}
	issuedAt := m.IssuedAt
	if issuedAt == "" {
		issuedAt = time.Now().UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "Issued At: %s", issuedAt)
	return b.String()
}
