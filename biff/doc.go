// Package biff decodes and encodes BIFF8 record streams, the binary record
// format of the "Workbook" stream inside a legacy .xls compound file.
//
// Every record is a 4-byte envelope (2-byte sid, 2-byte payload length)
// followed by at most MaxRecordSize payload bytes. Longer logical records
// continue in CONTINUE records. RecordInputStream reads record by record;
// its ReadContinued* and string methods stitch CONTINUE payloads back
// together.
package biff
