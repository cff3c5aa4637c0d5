package wal_manager

import (
	"encoding/binary"
	"hash/crc32"
)

var crcTable = crc32.MakeTable(crc32.IEEE)

// recordChecksum covers the LSN and the full payload, so a record replayed
// under the wrong LSN fails validation even when its bytes are intact.
func recordChecksum(lsn uint64, data []byte) uint32 {
	var lsnBuf [8]byte
	binary.BigEndian.PutUint64(lsnBuf[:], lsn)
	sum := crc32.Checksum(lsnBuf[:], crcTable)
	return crc32.Update(sum, crcTable, data)
}

// encode serializes the record as LSN(8) | LEN(4) | CRC(4) | DATA.
func (r *WALRecord) encode() []byte {
	buf := make([]byte, RecordHeaderSize+len(r.Data))
	binary.BigEndian.PutUint64(buf[0:8], r.LSN)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(r.Data)))
	binary.BigEndian.PutUint32(buf[12:16], r.CRC)
	copy(buf[RecordHeaderSize:], r.Data)
	return buf
}

func (r *WALRecord) valid() bool {
	return recordChecksum(r.LSN, r.Data) == r.CRC
}

// decodeRecordHeader splits a 16-byte record header into its fields.
func decodeRecordHeader(buf []byte) (lsn uint64, dataLen uint32, crc uint32) {
	lsn = binary.BigEndian.Uint64(buf[0:8])
	dataLen = binary.BigEndian.Uint32(buf[8:12])
	crc = binary.BigEndian.Uint32(buf[12:16])
	return lsn, dataLen, crc
}
