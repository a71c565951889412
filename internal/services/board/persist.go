package board

import (
	"fmt"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/scoring"
)

// WriteTo encodes the move stack, chat history and each player's pending
// tiles. The board itself is rebuilt from the stack on read.
func (m *Model) WriteTo(w *bitstream.Writer) {
	w.PutU32VL(uint32(len(m.stack)))
	for i := range m.stack {
		m.stack[i].WriteTo(w, m.tileSet)
	}
	w.PutU32VL(uint32(len(m.chats)))
	for _, c := range m.chats {
		w.PutString(c.Text)
		w.PutU8(uint8(c.From))
		w.PutU32(c.Timestamp)
	}
	if w.Version() >= bitstream.VersionDuplicate {
		for p := range m.players {
			m.writePending(w, p)
		}
	}
}

func (m *Model) writePending(w *bitstream.Writer, p int) {
	pending := m.players[p].pending
	w.PutBits(model.TrayCountBits, uint32(len(pending)))
	for _, pt := range pending {
		w.PutBits(model.CoordBits, uint32(pt.col))
		w.PutBits(model.CoordBits, uint32(pt.row))
		w.PutBits(m.tileSet.BitsPerTile(), uint32(pt.face))
		w.PutBool(pt.blank)
	}
}

// readPending puts a player's pending tiles back on the board, taking each
// from the tray rebuilt by replay
func (m *Model) readPending(r *bitstream.Reader, p int) error {
	n := int(r.GetBits(model.TrayCountBits))
	for i := 0; i < n; i++ {
		col := int(r.GetBits(model.CoordBits))
		row := int(r.GetBits(model.CoordBits))
		face := model.Tile(r.GetBits(m.tileSet.BitsPerTile()))
		blank := r.GetBool()
		if r.Err() != nil {
			return fmt.Errorf("reading pending tiles for player %d: %w", p, r.Err())
		}
		held := face
		if blank {
			held = model.Tile(m.tileSet.Blank)
		}
		idx := indexOf(m.players[p].tray, held)
		if idx < 0 || blank != m.tileSet.IsBlank(held) {
			return fmt.Errorf("pending tile %d for player %d: %w", face, p, model.ErrBadTrayIndex)
		}
		if err := m.MoveTrayToBoard(p, col, row, idx, face); err != nil {
			return fmt.Errorf("pending tile at %d,%d for player %d: %w", col, row, p, err)
		}
	}
	return nil
}

// Read decodes a board written by WriteTo
func Read(r *bitstream.Reader, cfg Config, tileSet *model.TileSet, oracle scoring.Oracle) (*Model, error) {
	n := int(r.GetU32VL())
	if r.Err() != nil {
		return nil, fmt.Errorf("reading stack length: %w", model.ErrSnapshotCorrupt)
	}
	// n comes off the wire, so entries grow as they decode
	var entries []model.StackEntry
	for i := 0; i < n; i++ {
		e := model.ReadStackEntry(r, tileSet)
		if r.Err() != nil {
			return nil, fmt.Errorf("reading stack entry %d: %w", i, model.ErrSnapshotCorrupt)
		}
		e.MoveNum = i
		entries = append(entries, e)
	}

	m := New(cfg, tileSet, oracle)
	nChats := int(r.GetU32VL())
	for i := 0; i < nChats && r.Err() == nil; i++ {
		msg := model.ChatMessage{Text: r.GetString()}
		msg.From = int(r.GetU8())
		if msg.From == 0xFF {
			msg.From = -1
		}
		msg.Timestamp = r.GetU32()
		m.chats = append(m.chats, msg)
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("reading chats: %w", model.ErrSnapshotCorrupt)
	}

	if err := m.Replay(entries); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSnapshotCorrupt, err)
	}
	if r.Version() >= bitstream.VersionDuplicate {
		for p := range m.players {
			if err := m.readPending(r, p); err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrSnapshotCorrupt, err)
			}
		}
	}
	return m, nil
}
