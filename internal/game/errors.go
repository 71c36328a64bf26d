package game

import "errors"

// Input errors: reported to the caller verbatim, never retried.
var (
	ErrInvalidSizeFormat = errors.New("game size is required, e.g. 2v2")
	ErrSideTooLarge      = errors.New("sides cannot be larger than 6 players")
	ErrTotalTooLarge     = errors.New("games can have a maximum of 12 players")
	ErrInvalidDuration   = errors.New("expiration must be between 1h and 96h")
	ErrInvalidDrawSize   = errors.New("draw size must be equal sides, 1v1 through 6v6")
	ErrUnknownTribe      = errors.New("unknown tribe name")
)

// State-conflict errors: expected outcomes of normal concurrent use.
var (
	ErrMatchFull         = errors.New("game is completely full")
	ErrSideFull          = errors.New("side is already full")
	ErrAlreadyJoined     = errors.New("player is already in this game")
	ErrNotInMatch        = errors.New("player is not a member of this game")
	ErrNotFull           = errors.New("game is not full")
	ErrNotPending        = errors.New("game has already started")
	ErrTooManyOpenGames  = errors.New("too many open games hosted")
	ErrNameRequired      = errors.New("game name is required to start")
	ErrInsufficientPool  = errors.New("not enough tribes remain in any tier")
	ErrPlayerUnavailable = errors.New("player could not be resolved on this server")
	ErrSideNotFound      = errors.New("side not found")
	ErrNotFound          = errors.New("game not found")
	ErrHostCannotLeave   = errors.New("host cannot leave their own game")
	ErrKickSelf          = errors.New("cannot kick yourself")
)

// ErrNotAuthorized is reported without further detail.
var ErrNotAuthorized = errors.New("not permitted")
