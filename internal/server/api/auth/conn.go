package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Conn frames every Write as length[4] nonce[12] ciphertext, all big endian.
// The nonce is a direction tag followed by a per-direction counter, so the two
// peers never reuse a nonce under the shared session key.
type Conn struct {
	net.Conn
	r       io.Reader
	aead    cipher.AEAD
	dir     uint32
	sendCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// Feed frames are tiny; anything this large is garbage.
const maxPacketSize = 64 * 1024

const (
	dirClient uint32 = 0
	dirServer uint32 = 1
)

// WrapConn encrypts conn with sessionKey. Reads come from r, which may hold
// bytes already buffered from conn; a nil r reads conn directly.
func WrapConn(conn net.Conn, r io.Reader, sessionKey []byte, server bool) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = conn
	}
	dir := dirClient
	if server {
		dir = dirServer
	}
	return &Conn{Conn: conn, r: r, aead: aead, dir: dir}, nil
}

func (s *Conn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nonce [chacha20poly1305.NonceSize]byte
	binary.BigEndian.PutUint32(nonce[:4], s.dir)
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	pkt := make([]byte, 4, 4+len(nonce)+len(p)+s.aead.Overhead())
	pkt = append(pkt, nonce[:]...)
	pkt = s.aead.Seal(pkt, nonce[:], p, nil)
	binary.BigEndian.PutUint32(pkt[:4], uint32(len(pkt)-4))

	if _, err := s.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Conn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length < chacha20poly1305.NonceSize || length > maxPacketSize {
			return 0, fmt.Errorf("encrypted frame of %d bytes: %w", length, io.ErrUnexpectedEOF)
		}

		pkt := make([]byte, length)
		if _, err := io.ReadFull(s.r, pkt); err != nil {
			return 0, err
		}
		nonce, ct := pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:]
		if binary.BigEndian.Uint32(nonce[:4]) == s.dir {
			return 0, fmt.Errorf("encrypted frame: reflected nonce")
		}
		pt, err := s.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
