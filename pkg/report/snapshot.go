package report

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// ErrCorruptSnapshot is returned when a snapshot fails its header or checksum checks.
var ErrCorruptSnapshot = errors.New("corrupt report snapshot")

const (
	snapshotMagic   = "SGRS"
	snapshotVersion = 1
)

// EncodeSnapshot writes r as snappy-compressed JSON.
// Format: [Magic:4][Version:1][DataLen:4][Data:N][Checksum:4]
func EncodeSnapshot(w io.Writer, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	bw := bufio.NewWriter(w)
	bw.WriteString(snapshotMagic)
	bw.WriteByte(snapshotVersion)
	binary.Write(bw, binary.BigEndian, uint32(len(compressed)))
	bw.Write(compressed)
	binary.Write(bw, binary.BigEndian, crc32.ChecksumIEEE(compressed))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot
func DecodeSnapshot(rd io.Reader) (*Report, error) {
	br := bufio.NewReader(rd)

	header := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if !bytes.Equal(header[:len(snapshotMagic)], []byte(snapshotMagic)) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSnapshot)
	}
	if header[len(snapshotMagic)] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, header[len(snapshotMagic)])
	}

	var dataLen uint32
	if err := binary.Read(br, binary.BigEndian, &dataLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	var checksum uint32
	if err := binary.Read(br, binary.BigEndian, &checksum); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &r, nil
}

// WriteSnapshot saves r to path, replacing any existing file atomically
func WriteSnapshot(path string, r *Report) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeSnapshot(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot from path
func ReadSnapshot(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}
