// Package cfb reads, modifies and writes OLE2 compound files (the "structured
// storage" envelope of legacy .xls, .doc and .ppt documents).
//
// A compound file is a sequence of fixed-size sectors. The header locates the
// sector allocation table (FAT), whose sectors are listed inline in the header
// and, for large files, in a chain of DIFAT sectors. Streams shorter than the
// mini stream cutoff live in 64-byte mini sectors carved out of the root
// entry's stream and are linked through the mini FAT.
//
// Opening is eager: the FAT, mini FAT and directory are decoded and validated
// up front, so a *File that opens successfully has a fully navigable tree.
// Individual streams are read lazily through *Stream.
//
//	f, err := cfb.Open("book.xls")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	s, err := f.OpenStream("Workbook")
package cfb
