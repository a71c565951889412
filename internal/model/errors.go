package model

import "errors"

// Common errors used across the application
var (
	// Game errors
	ErrGameNotFound     = errors.New("game not found")
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrWrongState       = errors.New("operation not allowed in current state")
	ErrGameOver         = errors.New("game is over")
	ErrInvalidPlayer    = errors.New("invalid player index")
	ErrTooManyPlayers   = errors.New("too many players")
	ErrNoPlayers        = errors.New("game has no players")
	ErrCantRematch      = errors.New("rematch not possible")
	ErrRegistrationFull = errors.New("no open seats for registration")
	ErrGameStalled      = errors.New("game did not finish")

	// Move legality errors
	ErrNoTilesPlaced     = errors.New("no tiles placed")
	ErrTilesNotInLine    = errors.New("tiles must be in a single row or column")
	ErrNoEmptiesInTurn   = errors.New("tiles must be contiguous")
	ErrTwoTilesFirstMove = errors.New("first move must use at least two tiles")
	ErrTilesMustContact  = errors.New("tiles must touch existing tiles or the center square")

	// Board errors
	ErrInvalidPosition  = errors.New("invalid board position")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrNoPendingTile    = errors.New("no pending tile at position")
	ErrBadTrayIndex     = errors.New("invalid tray index")
	ErrBlankFaceMissing = errors.New("blank tile needs a face")

	// Stack errors
	ErrCantUndoTileAssign = errors.New("can't undo initial tile assignment")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrStackDesync        = errors.New("move stack out of sync with peer")

	// Pool errors
	ErrTilesNotInPool     = errors.New("tiles not in pool")
	ErrTooFewTilesToTrade = errors.New("too few tiles left to trade")
	ErrTileSetMismatch    = errors.New("tile set mismatch")

	// Protocol errors
	ErrUnknownProto = errors.New("unknown protocol code")
	ErrBadVersion   = errors.New("unsupported stream version")

	// Storage errors
	ErrSnapshotCorrupt = errors.New("game snapshot checksum mismatch")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)
