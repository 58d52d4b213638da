package bitstream

import (
	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/flux"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var sessionLogger = log.NewLogger("bitstream.session")

type sessionState int

const (
	stateIdle sessionState = iota
	stateInID
	stateInData
)

// resyncGapRun is the number of consecutive gap bytes seen while idle that
// drops byte lock
const resyncGapRun = 4

// SessionStats counts the decoding events of one session
type SessionStats struct {
	Transitions int `json:"transitions" yaml:"transitions"`
	IndexMarks  int `json:"index_marks" yaml:"index_marks"`
	IDGood      int `json:"id_good" yaml:"id_good"`
	IDBad       int `json:"id_bad" yaml:"id_bad"`
	DataGood    int `json:"data_good" yaml:"data_good"`
	DataBad     int `json:"data_bad" yaml:"data_bad"`
	Orphans     int `json:"orphans" yaml:"orphans"`
	Restarts    int `json:"restarts" yaml:"restarts"`
	Resyncs     int `json:"resyncs" yaml:"resyncs"`
	Mismatches  int `json:"mismatches" yaml:"mismatches"`
}

// Session decodes one capture of one track with one modulation. It owns all
// decoder state, so sessions for different modulations can run concurrently.
type Session struct {
	mod    interfaces.Modulation
	framer interfaces.Framer
	clock  interfaces.CellClock
	track  int
	head   int

	state     sessionState
	pending   *types.SectorID
	block     []byte
	want      int
	blockMark types.AddressMark
	blockPos  int64
	invalid   bool
	gapRun    int

	position    int64
	trackLength int64
	sectors     []*types.Sector
	stats       SessionStats
}

// NewSession returns a session decoding the given drive track and head
func NewSession(mod interfaces.Modulation, clock interfaces.CellClock, track, head int) *Session {
	return &Session{
		mod:    mod,
		framer: mod.NewFramer(),
		clock:  clock,
		track:  track,
		head:   head,
	}
}

// Run feeds every transition of the capture through the session and returns
// the candidate sectors found
func (s *Session) Run(samples []byte) []*types.Sector {
	s.trackLength = int64(len(samples)) * 8
	flux.WalkTransitions(samples, s.Feed)
	return s.sectors
}

// Feed clocks one transition interval into the framer: zero cells for the
// gap, then a one cell for the transition.
func (s *Session) Feed(interval int, position int64) {
	s.stats.Transitions++
	s.position = position

	cells := s.clock.Cells(interval)
	for i := 1; i <= cells; i++ {
		var cell byte
		if i == cells {
			cell = 1
		}
		s.shift(cell)
	}
}

// Sectors returns the candidates found so far
func (s *Session) Sectors() []*types.Sector {
	return s.sectors
}

// Stats returns the session counters
func (s *Session) Stats() SessionStats {
	return s.stats
}

// Modulation returns the modulation this session decodes
func (s *Session) Modulation() types.Modulation {
	return s.mod.Kind()
}

func (s *Session) shift(cell byte) {
	sym, ok := s.framer.Shift(cell)
	if !ok {
		return
	}

	if sym.Kind != types.SymbolGap || s.state != stateIdle {
		s.gapRun = 0
	}

	switch sym.Kind {
	case types.SymbolMark:
		s.beginBlock(sym)
	case types.SymbolGap:
		if s.state == stateIdle {
			s.gapRun++
			if s.gapRun >= resyncGapRun {
				s.framer.Unlock()
				s.gapRun = 0
				s.stats.Resyncs++
			}
			return
		}
		s.appendByte(sym)
	default:
		if s.state != stateIdle {
			s.appendByte(sym)
		}
	}
}

func (s *Session) beginBlock(sym types.Symbol) {
	if s.state != stateIdle {
		s.stats.Restarts++
	}

	s.state = stateIdle
	s.blockMark = sym.Mark
	s.blockPos = s.position
	s.invalid = sym.Invalid
	s.block = append(s.block[:0], sym.Value)

	switch sym.Mark {
	case types.MarkIndex:
		s.stats.IndexMarks++
		s.pending = nil
	case types.MarkID:
		s.state = stateInID
		s.want = s.mod.IDBlockSize()
	case types.MarkData, types.MarkDeletedData:
		sizeCode := uint8(types.FallbackSizeCode)
		if s.pending != nil {
			sizeCode = s.pending.SizeCode
		}
		s.state = stateInData
		s.want = types.SectorBytes(sizeCode) + s.mod.BlockOverheadSize()
	}
}

func (s *Session) appendByte(sym types.Symbol) {
	s.block = append(s.block, sym.Value)
	if sym.Invalid {
		s.invalid = true
	}
	if len(s.block) < s.want {
		return
	}

	switch s.state {
	case stateInID:
		s.finishID()
	case stateInData:
		s.finishData()
	}
	s.state = stateIdle
}

func (s *Session) finishID() {
	id, ok := s.mod.DecodeID(s.block)
	if !ok || s.invalid {
		s.stats.IDBad++
		s.pending = nil
		sessionLogger.Debugf(nil, "%s: bad ID block on track %d head %d", s.mod.Kind(), s.track, s.head)
		return
	}

	if id.SizeCode > types.MaxSizeCode {
		sessionLogger.Debugf(nil, "%s: size code %d on %d/%d/%d treated as %d bytes", s.mod.Kind(), id.SizeCode, id.Track, id.Head, id.Sector, types.SectorBytes(types.FallbackSizeCode))
		id.SizeCode = types.FallbackSizeCode
		id.LowConfidence = true
	}
	id.Position = s.blockPos

	s.stats.IDGood++
	s.pending = &id
}

func (s *Session) finishData() {
	if s.pending == nil {
		s.stats.Orphans++
		return
	}
	id := s.pending
	s.pending = nil

	payload, ok := s.mod.DecodeData(s.block, id)
	quality := types.QualityGood
	if !ok || s.invalid {
		quality = types.QualityBad
		s.stats.DataBad++
	} else {
		s.stats.DataGood++
	}

	size := types.SectorBytes(id.SizeCode)
	if len(payload) != size {
		fixed := make([]byte, size)
		copy(fixed, payload)
		payload = fixed
	}

	sector := &types.Sector{
		Physical: types.PhysicalAddress{
			Track:  s.track,
			Head:   s.head,
			Sector: id.Sector,
		},
		Logical: types.LogicalAddress{
			Track:    id.Track,
			Head:     id.Head,
			Sector:   id.Sector,
			SizeCode: id.SizeCode,
		},
		IDQuality:     id.Quality,
		DataQuality:   quality,
		Modulation:    s.mod.Kind(),
		Deleted:       s.blockMark == types.MarkDeletedData,
		LowConfidence: id.LowConfidence,
		IDPosition:    id.Position,
		DataPosition:  s.blockPos,
		TrackLength:   s.trackLength,
		Data:          payload,
	}

	if id.Track-s.mod.TrackBase() != s.track {
		sector.TrackMismatch = true
		s.stats.Mismatches++
		sessionLogger.Warningf(nil, "%s: ID track %d read on drive track %d head %d (sector %d)", s.mod.Kind(), id.Track, s.track, s.head, id.Sector)
	}

	s.sectors = append(s.sectors, sector)
}

// Decode runs a fresh session of the given modulation over a capture, with
// the cell width derived from the classifier analysis
func Decode(samples []byte, analysis *flux.Analysis, mod interfaces.Modulation, usePLL bool, track, head int) *Session {
	clock := NewCellClock(analysis.CellSamples(mod.MinCells()), usePLL)
	session := NewSession(mod, clock, track, head)
	session.Run(samples)

	sessionLogger.Debugf(nil, "%s track %d head %d: %d sectors, stats %+v", mod.Kind(), track, head, len(session.sectors), session.stats)
	return session
}
