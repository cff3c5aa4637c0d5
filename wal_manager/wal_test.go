package wal_manager

import (
	"bytes"
	"testing"
)

func TestWALAppendAssignsIncreasingLSNs(t *testing.T) {
	wal, err := OpenWAL(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		lsn, err := wal.Append([]byte("record"))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if lsn <= last {
			t.Fatalf("lsn %d not greater than previous %d", lsn, last)
		}
		last = lsn
	}
}

func TestWALFlushedLSNAdvancesOnSync(t *testing.T) {
	wal, err := OpenWAL(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	lsn, err := wal.Append([]byte("pending"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := wal.GetFlushedLSN(); got >= lsn {
		t.Fatalf("FlushedLSN = %d covers unsynced lsn %d", got, lsn)
	}

	if err := wal.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := wal.GetFlushedLSN(); got != lsn {
		t.Fatalf("FlushedLSN after sync = %d, want %d", got, lsn)
	}
}

func TestWALRecoverRestoresLSN(t *testing.T) {
	dir := t.TempDir()

	wal, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	var last uint64
	for i := 0; i < 3; i++ {
		if last, err = wal.Append([]byte{byte(i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := wal.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wal2, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer wal2.Close()

	if got := wal2.GetCurrentLSN(); got != last {
		t.Fatalf("CurrentLSN after reopen = %d, want %d", got, last)
	}
	if got := wal2.GetFlushedLSN(); got != last {
		t.Fatalf("FlushedLSN after reopen = %d, want %d", got, last)
	}

	// new appends continue past the recovered point
	lsn, err := wal2.Append([]byte("after"))
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if lsn != last+1 {
		t.Fatalf("lsn after reopen = %d, want %d", lsn, last+1)
	}
}

func TestWALReplayReturnsPayloads(t *testing.T) {
	wal, err := OpenWAL(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	payloads := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	var lsns []uint64
	for _, p := range payloads {
		lsn, err := wal.Append(p)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		lsns = append(lsns, lsn)
	}
	if err := wal.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	var got [][]byte
	err = wal.Replay(lsns[1], func(lsn uint64, payload []byte) error {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		got = append(got, cp)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(got) != 2 || !bytes.Equal(got[0], payloads[1]) || !bytes.Equal(got[1], payloads[2]) {
		t.Fatalf("Replay from lsn %d yielded %q", lsns[1], got)
	}
}

func TestWALRecordCRCRoundTrip(t *testing.T) {
	r := &WALRecord{LSN: 7, Data: []byte("payload")}
	r.CRC = recordChecksum(r.LSN, r.Data)
	if !r.valid() {
		t.Fatal("fresh record fails CRC validation")
	}

	lsn, dataLen, crc := decodeRecordHeader(r.encode())
	if lsn != r.LSN || int(dataLen) != len(r.Data) || crc != r.CRC {
		t.Fatalf("decoded header (%d, %d, %d) does not match record", lsn, dataLen, crc)
	}

	r.Data[0] ^= 0xFF
	if r.valid() {
		t.Fatal("corrupted record passes CRC validation")
	}
}

func TestWALSegmentRotation(t *testing.T) {
	wal, err := OpenWAL(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	// shrink the current segment's remaining room instead of writing 16 MiB
	wal.currSegment.size = SegmentSize - 1

	if _, err := wal.Append([]byte("forces a fresh segment")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(wal.segments) != 2 {
		t.Fatalf("segment count = %d, want 2", len(wal.segments))
	}
	if wal.currSegment.id != 1 {
		t.Fatalf("current segment id = %d, want 1", wal.currSegment.id)
	}
}
