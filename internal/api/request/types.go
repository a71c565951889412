package request

import "github.com/mcoot/xwsync/internal/services/session"

// CreateGameRequest is the request body for creating a standalone or hosted game
type CreateGameRequest = session.CreateRequest

// JoinGameRequest is the request body for joining a game hosted on another device
type JoinGameRequest = session.JoinRequest

// ActionRequest is the request body for a player action
type ActionRequest = session.Action
