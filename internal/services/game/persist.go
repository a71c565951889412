package game

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

const (
	persistHasGuestInfo uint32 = 1 << iota
	persistHasOrder
	persistHasBadWords
)

// maxDevices bounds the device table; it has at most one device per player
const maxDevices = model.MaxPlayers

// WriteTo persists the controller's state. The board, pool and game info are
// written separately by their owners.
func (c *Controller) WriteTo(w *bitstream.Writer) {
	var flags uint32
	if c.rematch.guestInfo != nil {
		flags |= persistHasGuestInfo
	}
	if c.rematch.order != nil {
		flags |= persistHasOrder
	}
	if c.state == StateNeedSendBadWordInfo {
		flags |= persistHasBadWords
	}
	w.PutU32VL(flags)
	w.PutU32(c.lastMoveTime)
	if w.Version() >= bitstream.VersionDuplicate {
		w.PutU32(uint32(c.dupe.timerExpires))
	}

	w.PutBits(model.NPlayersBits, uint32(len(c.devices)-1))
	w.PutBits(stateBits, uint32(c.state))
	w.PutBits(model.NPlayersBits, uint32(c.turn+1))
	w.PutBits(model.NPlayersBits, uint32(c.quitter+1))
	w.PutBits(model.NPlayersBits, uint32(c.pendingRegs))
	for _, d := range c.devices {
		w.PutU16(uint16(d.channel))
		w.PutU8(uint8(d.version))
	}
	w.PutU8(uint8(c.streamVersion))

	if w.Version() >= bitstream.VersionDuplicate {
		for p := range c.dupe.made {
			w.PutBool(c.dupe.made[p])
			w.PutBool(c.dupe.forced[p])
		}
		w.PutBool(c.dupe.sent)
	}

	for p := range c.playerDevice {
		w.PutBits(model.NPlayersBits, uint32(c.playerDevice[p]+1))
		w.PutU16(uint16(min(c.secondsUsed[p], 0xFFFF)))
	}
	w.PutU16(uint16(c.lastMoveSource))

	if w.Version() >= bitstream.VersionPrevWords {
		w.PutString(c.prevMove)
		w.PutBits(model.NPlayersBits, uint32(c.prevMovePlayer+1))
	}

	if flags&persistHasGuestInfo != 0 {
		c.rematch.guestInfo.WriteTo(w)
	}
	if flags&persistHasOrder != 0 {
		c.rematch.order.WriteTo(w)
	}
	if flags&persistHasBadWords != 0 {
		w.PutBits(model.PlayerNumBits, uint32(max(c.badWords.player, 0)))
		c.writeBadWords(w, c.badWords)
	}
}

func (c *Controller) readFrom(r *bitstream.Reader) error {
	n := c.info.NPlayers()
	flags := r.GetU32VL()
	c.lastMoveTime = r.GetU32()
	c.dupe = newDupeState(n)
	if r.Version() >= bitstream.VersionDuplicate {
		c.dupe.timerExpires = int32(r.GetU32())
	}

	nDevices := int(r.GetBits(model.NPlayersBits)) + 1
	state := GameState(r.GetBits(stateBits))
	turn := int(r.GetBits(model.NPlayersBits)) - 1
	quitter := int(r.GetBits(model.NPlayersBits)) - 1
	pending := int(r.GetBits(model.NPlayersBits))
	if r.Err() == nil && (nDevices > maxDevices || !state.Valid() || turn >= n || quitter >= n || pending > n) {
		return fmt.Errorf("controller state %d turn %d devices %d: %w", state, turn, nDevices, model.ErrSnapshotCorrupt)
	}
	devices := make([]device, 0, nDevices)
	for i := 0; i < nDevices && r.Err() == nil; i++ {
		ch := comms.Channel(r.GetU16())
		v := bitstream.Version(r.GetU8())
		devices = append(devices, device{channel: ch, version: v})
	}
	streamVersion := bitstream.Version(r.GetU8())

	if r.Version() >= bitstream.VersionDuplicate {
		for p := 0; p < n; p++ {
			c.dupe.made[p] = r.GetBool()
			c.dupe.forced[p] = r.GetBool()
		}
		c.dupe.sent = r.GetBool()
	}

	playerDevice := make([]int, n)
	secondsUsed := make([]int, n)
	for p := 0; p < n; p++ {
		playerDevice[p] = int(r.GetBits(model.NPlayersBits)) - 1
		secondsUsed[p] = int(r.GetU16())
		if playerDevice[p] >= nDevices {
			return fmt.Errorf("player %d on device %d: %w", p, playerDevice[p], model.ErrSnapshotCorrupt)
		}
	}
	lastMoveSource := comms.Channel(r.GetU16())

	prevMove, prevMovePlayer := "", -1
	if r.Version() >= bitstream.VersionPrevWords {
		prevMove = r.GetString()
		prevMovePlayer = int(r.GetBits(model.NPlayersBits)) - 1
	}

	var guestInfo, order *RematchInfo
	if flags&persistHasGuestInfo != 0 {
		ri, err := ReadRematchInfo(r)
		if err != nil {
			return fmt.Errorf("rematch info: %w", err)
		}
		guestInfo = &ri
	}
	if flags&persistHasOrder != 0 {
		ri, err := ReadRematchInfo(r)
		if err != nil {
			return fmt.Errorf("rematch order: %w", err)
		}
		order = &ri
	}
	var bad badWordsInfo
	if flags&persistHasBadWords != 0 {
		player := int(r.GetBits(model.PlayerNumBits))
		bad = readBadWords(r)
		bad.player = player
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("controller state: %w: %w", model.ErrSnapshotCorrupt, err)
	}

	c.state = state
	c.turn = turn
	c.quitter = quitter
	c.pendingRegs = pending
	c.devices = devices
	c.streamVersion = streamVersion
	c.playerDevice = playerDevice
	c.secondsUsed = secondsUsed
	c.lastMoveSource = lastMoveSource
	c.prevMove = prevMove
	c.prevMovePlayer = prevMovePlayer
	c.rematch = rematchState{guestInfo: guestInfo, order: order}
	c.badWords = bad

	c.logger.Info("controller restored",
		slog.String("state", state.String()),
		slog.Int("turn", turn),
		slog.Int("devices", nDevices),
	)
	return nil
}
