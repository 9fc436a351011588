package errprocess

import (
	"errors"

	"club_chat_service/pkg/logger"
)

// Set log errMsg and return it as an error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
