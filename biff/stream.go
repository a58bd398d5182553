package biff

// RecordStream is a cursor over decoded records. Aggregate readers use it
// to look at the next sid before deciding whether to consume a record.
type RecordStream struct {
	recs []Record
	pos  int
}

func NewRecordStream(recs []Record) *RecordStream {
	return &RecordStream{recs: recs}
}

func (s *RecordStream) HasNext() bool { return s.pos < len(s.recs) }

// PeekSid returns the sid of the next record, or 0 at the end.
func (s *RecordStream) PeekSid() uint16 {
	if !s.HasNext() {
		return 0
	}
	return s.recs[s.pos].Sid()
}

// Next returns the next record, or nil at the end.
func (s *RecordStream) Next() Record {
	if !s.HasNext() {
		return nil
	}
	r := s.recs[s.pos]
	s.pos++
	return r
}

// Pos returns the index of the next record.
func (s *RecordStream) Pos() int { return s.pos }
