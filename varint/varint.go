// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package varint implements the LEB128 length-prefix framing used by the
// Embedded Sass Protocol: every message on the wire is preceded by its
// byte length encoded as an unsigned varint.
package varint

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxVarintLen is the maximum number of bytes a 64-bit unsigned varint can
// occupy on the wire.
const MaxVarintLen = binary.MaxVarintLen64

// WriteUvarint writes v to w as an unsigned LEB128 varint.
func WriteUvarint(w io.Writer, v uint64) error {
	var buf [MaxVarintLen]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

// ReadUvarint reads an unsigned LEB128 varint from r.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// WriteFrame writes payload to w prefixed with its length as an unsigned
// varint, as required for every message the host sends to the compiler.
func WriteFrame(w io.Writer, payload []byte) error {
	if err := WriteUvarint(w, uint64(len(payload))); err != nil {
		return fmt.Errorf("varint: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("varint: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads a single length-prefixed message from r, as sent by the
// compiler on its stdout stream. r must also implement io.ByteReader;
// bufio.Reader satisfies this.
func ReadFrame(r interface {
	io.Reader
	io.ByteReader
}) ([]byte, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("varint: read length prefix: %w", err)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("varint: read payload of %d bytes: %w", n, err)
	}

	return buf, nil
}
