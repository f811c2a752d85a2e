package etc

import (
	"github.com/google/uuid"
)

func NewFreshID() string {
	return uuid.NewString()
}
