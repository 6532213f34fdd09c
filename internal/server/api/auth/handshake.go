package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/ds4dsu/apitypes"
	apierror "github.com/Alia5/ds4dsu/internal/server/api/error"
)

// Handshake layout:
//
//	client: magic[5] nonce[32] hmac-sha256(key, context|nonce)[32]
//	server: "OK\0" nonce[32]
//
// A rejected client gets a problem+json line instead and the connection is closed.
const (
	HandshakeMagic = "eDS1\x00"
	NonceSize      = 32
	authContext    = "ds4dsu-auth-v1"
	okPrefix       = "OK\x00"
)

// IsAuthHandshake checks if the next bytes in reader match the handshake
// magic. It peeks one byte at a time so a short plain request is not held
// waiting for bytes that never come.
func IsAuthHandshake(r *bufio.Reader) (bool, error) {
	for n := 1; n <= len(HandshakeMagic); n++ {
		b, err := r.Peek(n)
		if err != nil {
			return false, err
		}
		if b[n-1] != HandshakeMagic[n-1] {
			return false, nil
		}
	}
	return true, nil
}

func clientProof(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(clientNonce)
	return mac.Sum(nil)
}

func newNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return n, nil
}

// ReadClientNonce reads the 32-byte client nonce. The magic must already be consumed.
func ReadClientNonce(r io.Reader) ([]byte, error) {
	clientNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil, fmt.Errorf("read client nonce: %w", err)
	}
	return clientNonce, nil
}

// WriteServerHandshake generates the server nonce and sends "OK\0" + nonce.
func WriteServerHandshake(w io.Writer) ([]byte, error) {
	if w == nil {
		return nil, errors.New("write response: nil writer")
	}
	serverNonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(append([]byte(okPrefix), serverNonce...)); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return serverNonce, nil
}

// ServerHandshake verifies a client handshake read from r and answers on w.
// A wrong password yields a 401 ApiError.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, errors.New("handshake: missing key")
	}
	if _, err := r.Discard(len(HandshakeMagic)); err != nil {
		return nil, nil, fmt.Errorf("discard handshake magic: %w", err)
	}
	if clientNonce, err = ReadClientNonce(r); err != nil {
		return nil, nil, err
	}
	proof := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, proof); err != nil {
		return nil, nil, fmt.Errorf("read client auth: %w", err)
	}
	if !hmac.Equal(proof, clientProof(key, clientNonce)) {
		return nil, nil, apierror.ErrUnauthorized("invalid password")
	}
	if serverNonce, err = WriteServerHandshake(w); err != nil {
		return nil, nil, err
	}
	return clientNonce, serverNonce, nil
}

// ClientHandshake sends the client half of the handshake on w and reads the
// server answer from r.
func ClientHandshake(r io.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, errors.New("handshake: missing key")
	}
	if clientNonce, err = newNonce(); err != nil {
		return nil, nil, err
	}
	msg := make([]byte, 0, len(HandshakeMagic)+NonceSize+sha256.Size)
	msg = append(msg, HandshakeMagic...)
	msg = append(msg, clientNonce...)
	msg = append(msg, clientProof(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okPrefix))
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apierror.ErrUnauthorized("connection closed during handshake")
		}
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okPrefix {
		rest, _ := io.ReadAll(r)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var apiErr apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, nil, &apiErr
		}
		return nil, nil, fmt.Errorf("invalid handshake response from server: %q", line)
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// Accept runs the server side of the handshake on conn, whose first bytes are
// buffered in r, and returns the encrypted connection.
func Accept(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	clientNonce, serverNonce, err := ServerHandshake(r, conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, r, DeriveSessionKey(key, serverNonce, clientNonce), true)
}

// Dial runs the client side of the handshake on conn and returns the
// encrypted connection.
func Dial(conn net.Conn, password string) (net.Conn, error) {
	key, err := DeriveKey(password)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(conn)
	clientNonce, serverNonce, err := ClientHandshake(r, conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, r, DeriveSessionKey(key, serverNonce, clientNonce), false)
}
