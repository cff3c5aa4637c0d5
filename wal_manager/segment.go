package wal_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// segment is one append-only log file. Segments are only touched under the
// manager's latch, so they carry no locking of their own.
type segment struct {
	id   uint64
	path string
	file *os.File
	size int64
}

func segmentFileName(id uint64) string {
	return fmt.Sprintf("wal_%016x.log", id)
}

// parseSegmentID extracts the id from a wal_<hex>.log file name.
func parseSegmentID(name string) (uint64, bool) {
	hexPart := strings.TrimSuffix(strings.TrimPrefix(name, "wal_"), ".log")
	id, err := strconv.ParseUint(hexPart, 16, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// openSegment opens or creates the segment file for id, positioned to append.
func openSegment(directory string, id uint64) (*segment, error) {
	path := filepath.Join(directory, segmentFileName(id))

	// O_APPEND keeps writes atomic at the OS level
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open wal segment %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat wal segment %s", path)
	}

	return &segment{id: id, path: path, file: file, size: stat.Size()}, nil
}

// hasRoom reports whether a record of recordLen bytes fits without pushing
// the segment past its rotation size. An empty segment accepts any record so
// oversized payloads still land somewhere.
func (s *segment) hasRoom(recordLen int) bool {
	if s.size == 0 {
		return true
	}
	return s.size+int64(recordLen) <= SegmentSize
}

// writeRecord encodes r and appends it to the segment file.
func (s *segment) writeRecord(r *WALRecord) error {
	if s.file == nil {
		return errors.Errorf("wal segment %d is closed", s.id)
	}
	n, err := s.file.Write(r.encode())
	s.size += int64(n)
	if err != nil {
		return errors.Wrapf(err, "failed to append to wal segment %d", s.id)
	}
	return nil
}

func (s *segment) sync() error {
	if s.file == nil {
		return errors.Errorf("wal segment %d is closed", s.id)
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync wal segment %d", s.id)
	}
	return nil
}

// close syncs and closes the segment file. Closing twice is a no-op.
func (s *segment) close() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync wal segment %d", s.id)
	}
	if err := s.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close wal segment %d", s.id)
	}
	s.file = nil
	return nil
}
