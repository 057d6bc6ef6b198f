package engine

import "errors"

// リクエスト単位のエラー。文字列はそのままackのエラーとしてクライアントへ返る
var (
	// membership
	ErrAlreadyInMatch = errors.New("already in a match")
	ErrUnknownMatch   = errors.New("unknown match id")
	ErrNotInMatch     = errors.New("not in a match")
	ErrMatchFull      = errors.New("match is already full")
	ErrInvalidSlot    = errors.New("invalid player slot")

	// state
	ErrNotStarted   = errors.New("game has not started yet")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrMatchOver    = errors.New("game is already over")
	ErrMatchClosed  = errors.New("match has been closed")
	ErrAlreadyReady = errors.New("ship configuration already set")

	// validity
	ErrOutOfBounds      = errors.New("coordinate out of bounds")
	ErrAlreadyAttacked  = errors.New("coord already attacked")
	ErrInvalidPlacement = errors.New("invalid ship placement")
	ErrInvalidConfig    = errors.New("invalid match config")
	ErrBoardExhausted   = errors.New("no unattacked coordinate left")

	// exclusivity
	ErrGestureLocked = errors.New("the gesture input is currently being used")
)

type ErrorClass string

const (
	ClassMembership  ErrorClass = "membership"
	ClassState       ErrorClass = "state"
	ClassValidity    ErrorClass = "validity"
	ClassExclusivity ErrorClass = "exclusivity"
	ClassInternal    ErrorClass = "internal"
)

// Classify はエラーを分類する。ログのフィールドに使う
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrAlreadyInMatch), errors.Is(err, ErrUnknownMatch), errors.Is(err, ErrNotInMatch),
		errors.Is(err, ErrMatchFull), errors.Is(err, ErrInvalidSlot):
		return ClassMembership
	case errors.Is(err, ErrNotStarted), errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrMatchOver),
		errors.Is(err, ErrMatchClosed), errors.Is(err, ErrAlreadyReady):
		return ClassState
	case errors.Is(err, ErrOutOfBounds), errors.Is(err, ErrAlreadyAttacked), errors.Is(err, ErrInvalidPlacement),
		errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrBoardExhausted):
		return ClassValidity
	case errors.Is(err, ErrGestureLocked):
		return ClassExclusivity
	}
	return ClassInternal
}
