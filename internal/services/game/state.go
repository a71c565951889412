package game

// GameState is where a game stands in the turn state machine. Several states
// only mark a message this device still owes a peer; Do sends it.
type GameState uint8

const (
	// StateNone is a guest waiting for the host's setup message
	StateNone GameState = iota
	// StateBegin is a host or standalone game before tiles are dealt
	StateBegin
	// StateReceivedAllReg means every remote seat has registered and setup must be sent
	StateReceivedAllReg
	StateNeedSendBadWordInfo
	// StateMoveConfirmWait is a guest waiting for the host to accept its move
	StateMoveConfirmWait
	StateMoveConfirmMustSend
	StateNeedSendEndGame
	StateInTurn
	StateGameOver

	stateCount
)

// stateBits is the wire width of a GameState
const stateBits = 4

func (s GameState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateBegin:
		return "begin"
	case StateReceivedAllReg:
		return "received_all_reg"
	case StateNeedSendBadWordInfo:
		return "needsend_badword_info"
	case StateMoveConfirmWait:
		return "move_confirm_wait"
	case StateMoveConfirmMustSend:
		return "move_confirm_mustsend"
	case StateNeedSendEndGame:
		return "needsend_endgame"
	case StateInTurn:
		return "inturn"
	case StateGameOver:
		return "gameover"
	default:
		return "invalid"
	}
}

// Valid reports whether s is a known state
func (s GameState) Valid() bool {
	return s < stateCount
}

// inPlay covers every state between the deal and the end of the game
func (s GameState) inPlay() bool {
	return s >= StateNeedSendBadWordInfo && s < StateGameOver
}
