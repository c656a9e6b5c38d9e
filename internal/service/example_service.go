package service

import (
	"fmt"
	"strings"

	"mcptoolbox/internal/model"
)

// Hello greets name on behalf of the server called serverName.
func Hello(name, serverName string) (*model.Greeting, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return &model.Greeting{
		Message: fmt.Sprintf("Hello, %s! This is the %s MCP server.", name, serverName),
	}, nil
}

func Add(a, b float64) *model.Sum {
	return &model.Sum{Result: a + b}
}
