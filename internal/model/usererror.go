package model

// UserError identifies a problem shown to the person at the device
type UserError string

const (
	UserErrCantUndoTileAssign   UserError = "cant_undo_tileassign"
	UserErrTooFewTilesToTrade   UserError = "too_few_tiles_left_to_trade"
	UserErrNotYourTurn          UserError = "not_your_turn"
	UserErrNoPeekRemoteTiles    UserError = "no_peek_remote_tiles"
	UserErrStackDesync          UserError = "stack_desync"
	UserErrRegistrationRejected UserError = "registration_rejected"
)
