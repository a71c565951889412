package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

type protoCode uint8

const (
	protoError protoCode = iota
	protoChat
	protoDeviceRegistration
	protoClientSetup
	protoMoveMadeGuest
	protoMoveMadeHost
	protoUndoClient
	protoUndoHost
	protoBadWordInfo
	protoMoveConfirm
	protoClientReqEndGame
	protoEndGame
	protoNewProto
	protoDupeStuff
)

const protoBits = 4

func (p protoCode) String() string {
	switch p {
	case protoError:
		return "error"
	case protoChat:
		return "chat"
	case protoDeviceRegistration:
		return "device_registration"
	case protoClientSetup:
		return "client_setup"
	case protoMoveMadeGuest:
		return "movemade_guest"
	case protoMoveMadeHost:
		return "movemade_host"
	case protoUndoClient:
		return "undo_client"
	case protoUndoHost:
		return "undo_host"
	case protoBadWordInfo:
		return "badword_info"
	case protoMoveConfirm:
		return "move_confirm"
	case protoClientReqEndGame:
		return "client_req_end_game"
	case protoEndGame:
		return "end_game"
	case protoNewProto:
		return "new_proto"
	case protoDupeStuff:
		return "dupe_stuff"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// dupeSub tags the messages carried inside protoDupeStuff
type dupeSub uint8

const (
	dupeTradesHost dupeSub = iota
	dupeMovesHost
	dupeMoveClient
	dupePause
)

const dupeSubBits = 3

// maxBadWords is the largest word list a bad-words report can carry
const maxBadWords = 15

// newMessage starts an outbound message at the negotiated version
func (c *Controller) newMessage(code protoCode) *bitstream.Writer {
	w := bitstream.NewWriter(c.streamVersion)
	if c.streamVersion >= bitstream.VersionPrevWords {
		w.PutBits(protoBits, uint32(protoNewProto))
		w.PutU8(uint8(c.streamVersion))
	}
	w.PutBits(protoBits, uint32(code))
	return w
}

// readProto reads a message header and adopts the sender's version
func (c *Controller) readProto(r *bitstream.Reader) (protoCode, error) {
	code := protoCode(r.GetBits(protoBits))
	version := legacyStreamVersion
	if code == protoNewProto {
		version = bitstream.Version(r.GetU8())
		code = protoCode(r.GetBits(protoBits))
	}
	if err := r.Err(); err != nil {
		return 0, err
	}
	if version < bitstream.Version1 || version > bitstream.VersionCurrent {
		return 0, fmt.Errorf("version %d: %w", version, model.ErrBadVersion)
	}
	if code > protoDupeStuff || code == protoNewProto {
		return 0, fmt.Errorf("code %d: %w", code, model.ErrUnknownProto)
	}
	r.SetVersion(version)
	if version != c.streamVersion {
		c.logger.Debug("stream version change",
			slog.Int("from", int(c.streamVersion)),
			slog.Int("to", int(version)),
		)
		c.streamVersion = version
	}
	return code, nil
}

func (c *Controller) sendTo(ctx context.Context, ch comms.Channel, w *bitstream.Writer) {
	if c.comms == nil {
		return
	}
	if err := c.comms.Send(ctx, ch, w.Bytes()); err != nil {
		c.logger.Warn("send failed",
			slog.Int("channel", int(ch)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Controller) sendToHost(ctx context.Context, w *bitstream.Writer) {
	c.sendTo(ctx, c.devices[0].channel, w)
}

// sendToGuests sends to every guest device except the one on skip
func (c *Controller) sendToGuests(ctx context.Context, w *bitstream.Writer, skip *comms.Channel) {
	for _, d := range c.devices[1:] {
		if skip != nil && d.channel == *skip {
			continue
		}
		c.sendTo(ctx, d.channel, w)
	}
}

// sendToPeers sends to the host from a guest, or to every guest from a host
func (c *Controller) sendToPeers(ctx context.Context, w *bitstream.Writer) {
	switch c.info.Role {
	case model.RoleGuest:
		c.sendToHost(ctx, w)
	case model.RoleHost:
		c.sendToGuests(ctx, w, nil)
	}
}

func (c *Controller) drop(code protoCode, from comms.Channel, reason string) bool {
	c.logger.Warn("dropping message",
		slog.String("code", code.String()),
		slog.String("state", c.state.String()),
		slog.Int("channel", int(from)),
		slog.String("reason", reason),
	)
	return false
}

// badWordsInfo is a phony report: the words and who played them
type badWordsInfo struct {
	player   int
	words    []string
	dictName string
}

func (c *Controller) writeBadWords(w *bitstream.Writer, bw badWordsInfo) {
	words := bw.words
	if len(words) > maxBadWords {
		words = words[:maxBadWords]
	}
	w.PutBits(4, uint32(len(words)))
	if w.Version() >= bitstream.VersionDictName {
		w.PutString(bw.dictName)
	}
	for _, word := range words {
		w.PutString(word)
	}
}

func readBadWords(r *bitstream.Reader) badWordsInfo {
	var bw badWordsInfo
	n := int(r.GetBits(4))
	if r.Version() >= bitstream.VersionDictName {
		bw.dictName = r.GetString()
	}
	for i := 0; i < n && r.Err() == nil; i++ {
		bw.words = append(bw.words, r.GetString())
	}
	return bw
}
