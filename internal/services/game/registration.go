package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/board"
)

// InitClientConnection registers this guest's players with the host on
// channel host
func (c *Controller) InitClientConnection(ctx context.Context, host comms.Channel) error {
	if c.info.Role != model.RoleGuest || c.state != StateNone {
		return model.ErrWrongState
	}
	c.devices[0].channel = host

	w := c.newMessage(protoDeviceRegistration)
	w.PutBits(model.NPlayersBits, uint32(c.info.NLocalPlayers()))
	for _, p := range c.info.Players {
		if !p.IsLocal {
			continue
		}
		name := p.Name
		if len(name) > model.MaxNameLen {
			name = name[:model.MaxNameLen]
		}
		w.PutBool(p.IsRobot)
		w.PutBits(model.NameLenBits, uint32(len(name)))
		for i := 0; i < len(name); i++ {
			w.PutU8(name[i])
		}
	}
	w.PutU8(uint8(bitstream.VersionCurrent))
	c.sendToHost(ctx, w)
	c.logger.Info("registering with host", slog.Int("players", c.info.NLocalPlayers()))
	return nil
}

type registrant struct {
	name  string
	robot bool
}

// handleRegistration seats a guest device's players. Once every seat is
// filled the host deals and owes each guest its setup message.
func (c *Controller) handleRegistration(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	if c.state != StateBegin {
		return c.drop(protoDeviceRegistration, from, "not accepting registrations")
	}
	n := int(r.GetBits(model.NPlayersBits))
	players := make([]registrant, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		robot := r.GetBool()
		nameLen := int(r.GetBits(model.NameLenBits))
		buf := make([]byte, 0, nameLen)
		for j := 0; j < nameLen && r.Err() == nil; j++ {
			buf = append(buf, r.GetU8())
		}
		players = append(players, registrant{name: string(buf), robot: robot})
	}
	version := bitstream.Version(r.GetU8())
	if r.Err() != nil {
		return c.drop(protoDeviceRegistration, from, "truncated")
	}
	if n == 0 || c.pendingRegs < n {
		c.cb.UserError(model.UserErrRegistrationRejected)
		return c.drop(protoDeviceRegistration, from, "not enough open seats")
	}

	dev := c.deviceFor(from)
	for _, p := range players {
		slot := c.findSlot(from)
		if slot < 0 {
			c.cb.UserError(model.UserErrRegistrationRejected)
			return c.drop(protoDeviceRegistration, from, "no seat for device")
		}
		c.info.Players[slot].Name = p.name
		c.info.Players[slot].IsRobot = p.robot
		c.playerDevice[slot] = dev
		c.pendingRegs--
		c.logger.Info("player registered",
			slog.Int("slot", slot),
			slog.String("name", p.name),
			slog.Int("device", dev),
		)
	}
	c.devices[dev].version = min(version, bitstream.VersionCurrent)

	if c.pendingRegs == 0 {
		c.setStreamVersion()
		if err := c.assignTilesToAll(); err != nil {
			c.logger.Error("dealing tiles failed", slog.String("error", err.Error()))
			return true
		}
		c.rematch.order = nil
		c.setState(StateReceivedAllReg)
		c.cb.RequestDo()
	}
	return true
}

// deviceFor returns the device on ch, adding it if new
func (c *Controller) deviceFor(ch comms.Channel) int {
	for i, d := range c.devices[1:] {
		if d.channel == ch {
			return i + 1
		}
	}
	c.devices = append(c.devices, device{channel: ch, version: legacyStreamVersion})
	return len(c.devices) - 1
}

// findSlot picks the seat for the next player from ch: the seat a rematch
// order reserved for that device, else the first open remote seat
func (c *Controller) findSlot(ch comms.Channel) int {
	if c.rematch.order != nil && c.comms != nil {
		if addr, ok := c.comms.ChannelAddress(ch); ok {
			for p, idx := range c.rematch.order.Index {
				if c.playerDevice[p] < 0 && idx >= 0 && idx < len(c.rematch.order.Addrs) && c.rematch.order.Addrs[idx] == addr {
					return p
				}
			}
		}
	}
	for p := range c.info.Players {
		if c.playerDevice[p] < 0 && !c.info.Players[p].IsLocal {
			return p
		}
	}
	return -1
}

// setStreamVersion settles on the newest version every device speaks
func (c *Controller) setStreamVersion() {
	v := bitstream.VersionCurrent
	for _, d := range c.devices[1:] {
		v = min(v, d.version)
	}
	c.logger.Info("stream version negotiated", slog.Int("version", int(v)))
	c.streamVersion = v
}

// connectionID tags this game's traffic on shared transports
func (c *Controller) connectionID() uint32 {
	return bitstream.Hash([]byte(c.info.ID))
}

// sendInitialMessages sends each guest the game as seen from its side
func (c *Controller) sendInitialMessages(ctx context.Context) {
	ts := c.board.TileSet()
	for dev := 1; dev < len(c.devices); dev++ {
		w := c.newMessage(protoClientSetup)
		w.PutU8(uint8(c.streamVersion))

		gi := c.info.Clone()
		gi.Role = model.RoleGuest
		for p := range gi.Players {
			gi.Players[p].IsLocal = c.playerDevice[p] == dev
		}
		gi.WriteTo(w)

		if c.info.Duplicate {
			model.WriteTiles(w, ts, c.board.TrayTiles(0))
		} else {
			for p := range c.info.Players {
				model.WriteTiles(w, ts, c.board.TrayTiles(p))
			}
		}

		var ri []byte
		if len(c.devices) > 2 {
			sub := bitstream.NewWriter(c.streamVersion)
			c.guestRematchInfo(dev).WriteTo(sub)
			ri = sub.Bytes()
		}
		w.PutBytes(ri)

		c.sendTo(ctx, c.devices[dev].channel, w)
	}
	if c.comms != nil {
		c.comms.SetConnectionID(c.connectionID())
	}
	c.logger.Info("setup sent", slog.Int("guests", len(c.devices)-1))
}

// handleClientSetup is a guest adopting the game the host set up
func (c *Controller) handleClientSetup(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	if c.state != StateNone {
		return c.drop(protoClientSetup, from, "already set up")
	}
	version := bitstream.Version(r.GetU8())
	if r.Err() != nil || version < bitstream.Version1 || version > bitstream.VersionCurrent {
		return c.drop(protoClientSetup, from, "bad version")
	}
	r.SetVersion(version)
	gi, err := model.ReadGameInfo(r)
	if err != nil {
		return c.drop(protoClientSetup, from, err.Error())
	}
	gi.Role = model.RoleGuest

	ts := c.board.TileSet()
	nTrays := gi.NPlayers()
	if gi.Duplicate {
		nTrays = 1
	}
	trays := make([][]model.Tile, nTrays)
	var all []model.Tile
	for i := range trays {
		trays[i] = model.ReadTiles(r, ts)
		all = append(all, trays[i]...)
	}
	riData := r.GetBytes()
	if r.Err() != nil {
		return c.drop(protoClientSetup, from, "truncated")
	}
	if !c.pool.Contains(all) {
		return c.drop(protoClientSetup, from, "trays not in pool")
	}
	var ri *RematchInfo
	if len(riData) > 0 {
		read, err := ReadRematchInfo(bitstream.NewReader(riData, version))
		if err != nil {
			return c.drop(protoClientSetup, from, "bad rematch info")
		}
		ri = &read
	}

	host := c.devices[0].channel
	c.info = gi
	c.scopeLogger()
	c.board.Reset(board.ConfigFromGameInfo(gi))
	c.init()
	c.devices[0].channel = host
	c.streamVersion = version
	c.rematch.guestInfo = ri

	_ = c.pool.Remove(all)
	if gi.Duplicate {
		if err := c.board.AssignDupeTiles(trays[0]); err != nil {
			c.logger.Error("assigning tiles failed", slog.String("error", err.Error()))
		}
	} else {
		for p, tray := range trays {
			if err := c.board.AssignPlayerTiles(p, tray); err != nil {
				c.logger.Error("assigning tiles failed", slog.Int("player", p), slog.String("error", err.Error()))
			}
		}
	}
	if c.comms != nil {
		c.comms.SetConnectionID(c.connectionID())
	}
	c.logger.Info("joined game",
		slog.Int("players", gi.NPlayers()),
		slog.Int("local", gi.NLocalPlayers()),
		slog.Int("version", int(version)),
	)

	c.setState(StateInTurn)
	c.setTurn(0)
	c.resetDupTimer()
	c.requestRobotDo()
	return true
}
