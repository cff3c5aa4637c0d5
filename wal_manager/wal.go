package wal_manager

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

/*

WAL Segment File
────────────────────────────────────
| Record | Record | Record | ...   |
────────────────────────────────────

Each Record:
────────────────────────────────────────────
| LSN (8) | LEN (4) | CRC (4) | DATA (LEN) |
────────────────────────────────────────────

DATA starts with an 8-byte snowflake id so records stay unique across
processes sharing a directory; the rest is the caller's payload.

A record never straddles segments: a segment rotates when the next record
would push it past SegmentSize.

*/

// OpenWAL opens the log in directory, scanning existing segments to restore
// the highest LSN. FlushedLSN starts at the recovered LSN: everything on
// disk is by definition durable.
func OpenWAL(directory string) (*WALManager, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create wal directory %s", directory)
	}

	idGen, err := snowflake.NewNode(int64(os.Getpid() % 1024))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build wal id generator")
	}

	wal := &WALManager{
		Directory: directory,
		segments:  make(map[uint64]*segment),
		idGen:     idGen,
		logger: log.Logger{
			Level:   log.InfoLevel,
			Context: log.NewContext(nil).Str("component", "wal_manager").Value(),
		},
	}

	if err := wal.recoverWALEntries(); err != nil {
		return nil, err
	}
	wal.FlushedLSN = wal.CurrentLSN

	if wal.currSegment == nil {
		if err := wal.rotateSegment(); err != nil {
			return nil, err
		}
	}

	return wal, nil
}

// recoverWALEntries reopens every wal_*.log file and restores CurrentLSN to
// the largest LSN found across them.
func (w *WALManager) recoverWALEntries() error {
	files, err := filepath.Glob(filepath.Join(w.Directory, "wal_*.log"))
	if err != nil {
		return errors.Wrap(err, "failed to list wal segments")
	}

	var segmentIDs []uint64
	for _, file := range files {
		if id, ok := parseSegmentID(filepath.Base(file)); ok {
			segmentIDs = append(segmentIDs, id)
		}
	}

	if len(segmentIDs) == 0 {
		return nil
	}

	slices.Sort(segmentIDs)

	maxLSN := uint64(0)
	for _, id := range segmentIDs {
		seg, err := openSegment(w.Directory, id)
		if err != nil {
			return err
		}
		w.segments[id] = seg

		lsn, err := w.findLargestLSN(seg)
		if err != nil {
			return err
		}
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}

	w.currSegment = w.segments[segmentIDs[len(segmentIDs)-1]]
	w.CurrentLSN = maxLSN

	w.logger.Info().
		Int("segments", len(segmentIDs)).
		Uint64("current_lsn", w.CurrentLSN).
		Msg("wal recovered")

	return nil
}

// rotateSegment opens the next segment file and makes it current.
func (w *WALManager) rotateSegment() error {
	id := uint64(len(w.segments))
	seg, err := openSegment(w.Directory, id)
	if err != nil {
		return err
	}
	w.segments[id] = seg
	w.currSegment = seg
	return nil
}

// Append assigns the next LSN to data and writes the record to the current
// segment, rotating first when the record would not fit. The record is
// durable only after a later Sync.
func (wm *WALManager) Append(data []byte) (uint64, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wm.CurrentLSN++
	lsn := wm.CurrentLSN

	payload := make([]byte, PayloadIDSize+len(data))
	binary.BigEndian.PutUint64(payload[0:PayloadIDSize], uint64(wm.idGen.Generate().Int64()))
	copy(payload[PayloadIDSize:], data)

	record := &WALRecord{
		LSN:  lsn,
		Data: payload,
		CRC:  recordChecksum(lsn, payload),
	}

	if !wm.currSegment.hasRoom(RecordHeaderSize + len(payload)) {
		if err := wm.rotateSegment(); err != nil {
			return 0, err
		}
	}

	if err := wm.currSegment.writeRecord(record); err != nil {
		return 0, err
	}

	return lsn, nil
}

// Sync fsyncs the current segment and advances FlushedLSN to cover every
// record appended so far.
func (wm *WALManager) Sync() error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if err := wm.currSegment.sync(); err != nil {
		return err
	}
	wm.FlushedLSN = wm.CurrentLSN
	return nil
}

// GetFlushedLSN reports the highest LSN known durable. The buffer pool
// compares page LSNs against this before flushing.
func (wm *WALManager) GetFlushedLSN() uint64 {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.FlushedLSN
}

// GetCurrentLSN reports the highest LSN handed out.
func (wm *WALManager) GetCurrentLSN() uint64 {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.CurrentLSN
}

// Replay walks every record with LSN >= startLSN in LSN order, handing the
// caller the raw payload after the snowflake id prefix.
func (wm *WALManager) Replay(startLSN uint64, applyFunc func(lsn uint64, payload []byte) error) error {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	var segmentIDs []uint64
	for id := range wm.segments {
		segmentIDs = append(segmentIDs, id)
	}
	slices.Sort(segmentIDs)

	for _, id := range segmentIDs {
		if err := wm.replaySegment(wm.segments[id], startLSN, applyFunc); err != nil {
			return errors.Wrapf(err, "failed to replay segment %d", id)
		}
	}
	return nil
}

func (wm *WALManager) replaySegment(seg *segment, startLSN uint64, applyFunc func(lsn uint64, payload []byte) error) error {
	file, err := os.Open(seg.path)
	if err != nil {
		return errors.Wrapf(err, "failed to open segment %s", seg.path)
	}
	defer file.Close()

	header := make([]byte, RecordHeaderSize)
	for {
		_, err := io.ReadFull(file, header)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read record header")
		}

		lsn, dataLen, crc := decodeRecordHeader(header)

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(file, data); err != nil {
			return errors.Wrapf(err, "failed to read record body at lsn %d", lsn)
		}

		if recordChecksum(lsn, data) != crc {
			return errors.Errorf("crc mismatch at lsn %d", lsn)
		}
		if lsn < startLSN {
			continue
		}
		if len(data) < PayloadIDSize {
			return errors.Errorf("record at lsn %d shorter than payload header", lsn)
		}

		if err := applyFunc(lsn, data[PayloadIDSize:]); err != nil {
			return errors.Wrapf(err, "apply failed at lsn %d", lsn)
		}
	}
	return nil
}

func (wm *WALManager) Close() error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, seg := range wm.segments {
		if err := seg.close(); err != nil {
			return err
		}
	}
	return nil
}

// findLargestLSN scans one segment header-by-header, skipping record bodies.
func (w *WALManager) findLargestLSN(seg *segment) (uint64, error) {
	file, err := os.Open(seg.path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open segment %s", seg.path)
	}
	defer file.Close()

	maxLSN := uint64(0)
	buf := make([]byte, RecordHeaderSize)

	for {
		_, err := io.ReadFull(file, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return 0, errors.Wrap(err, "failed to read record header")
		}

		lsn, dataLen, _ := decodeRecordHeader(buf)
		if lsn > maxLSN {
			maxLSN = lsn
		}

		if _, err := file.Seek(int64(dataLen), io.SeekCurrent); err != nil {
			break
		}
	}

	return maxLSN, nil
}
