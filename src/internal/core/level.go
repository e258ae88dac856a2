// FILE: src/internal/core/level.go
package core

import (
	"fmt"
	"strings"
)

// Level classifies a record's severity
type Level uint8

const (
	Critical Level = iota
	Error
	Warning
	Info
	Debug
)

var levelNames = [...]string{
	Critical: "CRITICAL",
	Error:    "ERROR",
	Warning:  "WARNING",
	Info:     "INFO",
	Debug:    "DEBUG",
}

// Returns the canonical upper-case level name
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", uint8(l))
}

// Returns all levels in severity order, most severe first
func Levels() [5]Level {
	return [5]Level{Critical, Error, Warning, Info, Debug}
}

// InvalidLevelError reports a severity name outside the fixed enum
type InvalidLevelError struct {
	Value string
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("Invalid level: '%s'", e.Value)
}

// ParseLevel resolves a level name to its enum value.
// Matching is case-insensitive and accepts WARN as an alias of WARNING.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(name) {
	case "CRITICAL":
		return Critical, nil
	case "ERROR":
		return Error, nil
	case "WARN", "WARNING":
		return Warning, nil
	case "INFO":
		return Info, nil
	case "DEBUG":
		return Debug, nil
	default:
		return 0, &InvalidLevelError{Value: name}
	}
}
