package registry

import (
	"fmt"
	"time"
)

// Category groups plugins sharing one contract.
type Category string

const (
	CategoryAction Category = "action"
	CategoryReport Category = "report"
)

// Descriptor is the public metadata of a registered plugin.
type Descriptor struct {
	Key         string   `json:"key"`
	Category    Category `json:"category"`
	Type        string   `json:"type"`
	Module      string   `json:"module"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
}

// LoadError records a module that could not be registered.
type LoadError struct {
	Candidate string    `json:"candidate"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s plugin module '%s': %s", e.Category, e.Candidate, e.Message)
}

// DuplicateKeyError is returned when two registrations claim one key.
type DuplicateKeyError struct {
	Key    string
	First  string
	Second string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("plugin key '%s' registered by both '%s' and '%s'", e.Key, e.First, e.Second)
}
