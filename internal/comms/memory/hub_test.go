package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/comms"
)

type received struct {
	from comms.Channel
	data string
}

type recorder struct {
	got    []received
	echo   *Endpoint
	doWork int
}

func (r *recorder) ReceiveMessage(ctx context.Context, from comms.Channel, data []byte) bool {
	r.got = append(r.got, received{from: from, data: string(data)})
	if r.echo != nil && string(data) == "ping" {
		_ = r.echo.Send(ctx, from, []byte("pong"))
	}
	return true
}

func (r *recorder) Do(ctx context.Context) bool {
	if r.doWork == 0 {
		return false
	}
	r.doWork--
	return true
}

type HubSuite struct {
	suite.Suite
	hub   *Hub
	host  *recorder
	guest *recorder
	ctx   context.Context
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	s.hub = NewHub()
	s.hub.Link("host", 1, "guest", comms.HostChannel)
	s.host = &recorder{echo: s.hub.Endpoint("host")}
	s.guest = &recorder{}
	s.hub.Endpoint("host").Bind(s.host)
	s.hub.Endpoint("guest").Bind(s.guest)
	s.ctx = context.Background()
}

func (s *HubSuite) TestSendQueuesUntilPump() {
	s.Require().NoError(s.hub.Endpoint("guest").Send(s.ctx, comms.HostChannel, []byte("hello")))
	s.Empty(s.host.got)
	s.Equal(1, s.hub.Pending())

	s.Equal(1, s.hub.Pump(s.ctx))

	s.Equal([]received{{from: 1, data: "hello"}}, s.host.got)
}

func (s *HubSuite) TestRepliesSentDuringDeliveryArriveInSamePump() {
	s.Require().NoError(s.hub.Endpoint("guest").Send(s.ctx, comms.HostChannel, []byte("ping")))

	s.Equal(2, s.hub.Pump(s.ctx))

	s.Equal([]received{{from: comms.HostChannel, data: "pong"}}, s.guest.got)
	s.Equal(2, s.hub.Sent())
}

func (s *HubSuite) TestPumpRunsDeferredWork() {
	s.host.doWork = 3

	s.hub.Pump(s.ctx)

	s.Equal(0, s.host.doWork)
}

func (s *HubSuite) TestUnknownChannel() {
	err := s.hub.Endpoint("guest").Send(s.ctx, 7, []byte("x"))
	s.Error(err)
}

func (s *HubSuite) TestDropPending() {
	_ = s.hub.Endpoint("guest").Send(s.ctx, comms.HostChannel, []byte("lost"))

	s.Equal(1, s.hub.DropPending())
	s.hub.Pump(s.ctx)

	s.Empty(s.host.got)
}

func (s *HubSuite) TestChannelAddress() {
	addr, ok := s.hub.Endpoint("host").ChannelAddress(1)
	s.Require().True(ok)
	s.Equal(comms.Address{Kind: comms.AddrMemory, Value: "guest"}, addr)

	_, ok = s.hub.Endpoint("host").ChannelAddress(5)
	s.False(ok)
}
