package game

import (
	"cmp"
	"slices"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

// RematchOrder is how seats are reassigned for a rematch
type RematchOrder uint8

const (
	RematchSame RematchOrder = iota
	RematchLowScoreFirst
	RematchHighScoreFirst
	RematchRandom
	RematchByName
)

func (o RematchOrder) String() string {
	switch o {
	case RematchSame:
		return "same"
	case RematchLowScoreFirst:
		return "low_score_first"
	case RematchHighScoreFirst:
		return "high_score_first"
	case RematchRandom:
		return "random"
	case RematchByName:
		return "by_name"
	default:
		return "unknown"
	}
}

// RematchInfo says how to reach each seat's device. Index holds -1 for a
// local seat, otherwise an entry in Addrs; seats on one device share an entry.
type RematchInfo struct {
	Index []int
	Addrs []comms.Address
}

// addAddr points player at addr, reusing an equal entry
func (ri *RematchInfo) addAddr(player int, addr comms.Address) {
	for i, a := range ri.Addrs {
		if a == addr {
			ri.Index[player] = i
			return
		}
	}
	ri.Addrs = append(ri.Addrs, addr)
	ri.Index[player] = len(ri.Addrs) - 1
}

// Reordered returns the info for seats in the given order
func (ri RematchInfo) Reordered(order []int) RematchInfo {
	out := RematchInfo{Index: make([]int, len(order)), Addrs: append([]comms.Address(nil), ri.Addrs...)}
	for seat, old := range order {
		out.Index[seat] = ri.Index[old]
	}
	return out
}

// WriteTo encodes the info
func (ri RematchInfo) WriteTo(w *bitstream.Writer) {
	w.PutBits(model.NPlayersBits, uint32(len(ri.Index)))
	for _, idx := range ri.Index {
		w.PutBool(idx < 0)
		if idx >= 0 {
			w.PutBits(model.PlayerNumBits, uint32(idx))
		}
	}
	w.PutBits(model.NPlayersBits, uint32(len(ri.Addrs)))
	for _, a := range ri.Addrs {
		a.WriteTo(w)
	}
}

// ReadRematchInfo decodes info written by RematchInfo.WriteTo
func ReadRematchInfo(r *bitstream.Reader) (RematchInfo, error) {
	var ri RematchInfo
	n := int(r.GetBits(model.NPlayersBits))
	for i := 0; i < n && r.Err() == nil; i++ {
		idx := -1
		if !r.GetBool() {
			idx = int(r.GetBits(model.PlayerNumBits))
		}
		ri.Index = append(ri.Index, idx)
	}
	nAddrs := int(r.GetBits(model.NPlayersBits))
	for i := 0; i < nAddrs && r.Err() == nil; i++ {
		ri.Addrs = append(ri.Addrs, comms.ReadAddress(r))
	}
	if err := r.Err(); err != nil {
		return RematchInfo{}, err
	}
	for _, idx := range ri.Index {
		if idx >= len(ri.Addrs) {
			return RematchInfo{}, model.ErrCantRematch
		}
	}
	return ri, nil
}

type rematchState struct {
	// guestInfo is the host's view of the other guests, sent at setup
	guestInfo *RematchInfo
	// order is the seating a host fills registrations into
	order *RematchInfo
}

// CanRematch reports whether this device knows enough to invite everyone back
func (c *Controller) CanRematch() bool {
	switch c.info.Role {
	case model.RoleStandalone:
		return true
	case model.RoleHost:
		return c.state >= StateReceivedAllReg && len(c.devices) == c.info.NPlayers()
	default:
		return c.info.NPlayers() == 2 || c.rematch.guestInfo != nil
	}
}

// FigureRematchOrder computes the new seating. order[i] is the old seat of
// the player who sits at i, and the info is in the new seat order.
func (c *Controller) FigureRematchOrder(ro RematchOrder) ([]int, RematchInfo) {
	n := c.info.NPlayers()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	switch ro {
	case RematchLowScoreFirst, RematchHighScoreFirst:
		scores := c.board.FinalScores()
		slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(scores[a], scores[b]) })
		if ro == RematchHighScoreFirst {
			slices.Reverse(order)
		}
	case RematchRandom:
		src := append([]int(nil), order...)
		for i := 0; i < n; i++ {
			left := n - i
			pick := c.random.Intn(left)
			order[i] = src[pick]
			src[pick] = src[left-1]
		}
	case RematchByName:
		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(c.info.Players[a].Name, c.info.Players[b].Name)
		})
	}
	return order, c.rematchInfo().Reordered(order)
}

// rematchInfo is this device's view of where every seat lives
func (c *Controller) rematchInfo() RematchInfo {
	n := c.info.NPlayers()
	ri := RematchInfo{Index: make([]int, n)}
	for p := 0; p < n; p++ {
		ri.Index[p] = -1
	}
	if c.info.Role == model.RoleGuest && c.info.NPlayers() > 2 && c.rematch.guestInfo != nil {
		return c.guestViewWithHost(*c.rematch.guestInfo)
	}
	for p := 0; p < n; p++ {
		if c.isLocal(p) || c.comms == nil {
			continue
		}
		ch := c.devices[0].channel
		if c.info.Role == model.RoleHost {
			dev := c.playerDevice[p]
			if dev <= 0 {
				continue
			}
			ch = c.devices[dev].channel
		}
		if addr, ok := c.comms.ChannelAddress(ch); ok {
			ri.addAddr(p, addr)
		}
	}
	return ri
}

// guestViewWithHost fills the host's empty placeholder with the host's
// real address
func (c *Controller) guestViewWithHost(ri RematchInfo) RematchInfo {
	out := RematchInfo{Index: append([]int(nil), ri.Index...), Addrs: append([]comms.Address(nil), ri.Addrs...)}
	if c.comms == nil {
		return out
	}
	host, ok := c.comms.ChannelAddress(c.devices[0].channel)
	if !ok {
		return out
	}
	for i, a := range out.Addrs {
		if a == (comms.Address{}) {
			out.Addrs[i] = host
		}
	}
	return out
}

// guestRematchInfo is the rematch info as the guest on dev will see it: its
// own seats are local and the host's seats share an empty placeholder
func (c *Controller) guestRematchInfo(dev int) RematchInfo {
	n := c.info.NPlayers()
	ri := RematchInfo{Index: make([]int, n)}
	for p := 0; p < n; p++ {
		switch d := c.playerDevice[p]; {
		case d == dev:
			ri.Index[p] = -1
		case d <= 0:
			ri.addAddr(p, comms.Address{})
		default:
			addr, _ := c.comms.ChannelAddress(c.devices[d].channel)
			ri.addAddr(p, addr)
		}
	}
	return ri
}

// SetRematchOrder makes a host seat registering devices as ri says
func (c *Controller) SetRematchOrder(ri RematchInfo) error {
	if c.info.Role != model.RoleHost || c.state != StateBegin {
		return model.ErrWrongState
	}
	if len(ri.Index) != c.info.NPlayers() {
		return model.ErrCantRematch
	}
	c.rematch.order = &RematchInfo{Index: append([]int(nil), ri.Index...), Addrs: append([]comms.Address(nil), ri.Addrs...)}
	return nil
}
