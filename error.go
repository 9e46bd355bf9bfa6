package match

import "errors"

var (
	ErrInvalidParam = errors.New("the param is invalid")
	ErrInternal     = errors.New("internal server error")
	ErrTimeout      = errors.New("timeout")
	ErrShutdown     = errors.New("order book is shutting down")
	ErrSequenceGap  = errors.New("book event sequence gap detected")
)
