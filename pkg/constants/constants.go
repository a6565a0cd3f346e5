package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "request-start"
	RequestIDKey ContextKey = "request-id"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
