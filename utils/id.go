package utils

import (
	"github.com/google/uuid"
)

// GenerateID 生成新的记录ID
func GenerateID() string {
	return uuid.New().String()
}
