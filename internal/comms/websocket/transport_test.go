package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/testutil"
)

type message struct {
	from comms.Channel
	data string
}

func inbox(out chan<- message) comms.Receiver {
	return comms.ReceiverFunc(func(ctx context.Context, from comms.Channel, data []byte) bool {
		out <- message{from: from, data: string(data)}
		return true
	})
}

type TransportSuite struct {
	suite.Suite
	server     *httptest.Server
	host       *Transport
	guest      *Transport
	hostInbox  chan message
	guestInbox chan message
	ctx        context.Context
	cancel     context.CancelFunc
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.host = New(testutil.NopLogger())
	s.guest = New(testutil.NopLogger())
	s.hostInbox = make(chan message, 8)
	s.guestInbox = make(chan message, 8)
	go func() { _ = s.host.Listen(s.ctx, inbox(s.hostInbox)) }()
	go func() { _ = s.guest.Listen(s.ctx, inbox(s.guestInbox)) }()
	<-s.host.Ready()
	<-s.guest.Ready()

	s.server = httptest.NewServer(s.host.Handler())
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	s.Require().NoError(s.guest.Dial(s.ctx, url))
}

func (s *TransportSuite) TearDownTest() {
	s.cancel()
	s.server.Close()
}

func (s *TransportSuite) receive(ch <-chan message) message {
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		s.FailNow("no message delivered")
		return message{}
	}
}

func (s *TransportSuite) TestGuestToHostAndBack() {
	s.Require().NoError(s.guest.Send(s.ctx, comms.HostChannel, []byte{0x01, 0x02}))

	m := s.receive(s.hostInbox)
	s.Equal(comms.Channel(1), m.from)
	s.Equal(string([]byte{0x01, 0x02}), m.data)

	s.Require().NoError(s.host.Send(s.ctx, m.from, []byte("setup")))
	reply := s.receive(s.guestInbox)
	s.Equal(comms.HostChannel, reply.from)
	s.Equal("setup", reply.data)
}

func (s *TransportSuite) TestChannelAddresses() {
	addr, ok := s.guest.ChannelAddress(comms.HostChannel)
	s.Require().True(ok)
	s.Equal(comms.AddrWebsocket, addr.Kind)
	s.True(strings.HasPrefix(addr.Value, "ws://"))
}

func (s *TransportSuite) TestSendWithoutPeer() {
	s.Error(s.guest.Send(s.ctx, 4, []byte("x")))
}
