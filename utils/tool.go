package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// AnalysisIDLength 记录ID长度
const AnalysisIDLength = 16

// NewAnalysisID 生成16位base62记录ID
func NewAnalysisID() (string, error) {
	return gonanoid.Generate(base62Chars, AnalysisIDLength)
}

// ValidateAnalysisID 验证记录ID格式
func ValidateAnalysisID(id string) bool {
	if len(id) != AnalysisIDLength {
		return false
	}

	for _, char := range id {
		if !strings.ContainsRune(base62Chars, char) {
			return false
		}
	}

	return true
}
