package ui

import (
	"github.com/desertthunder/earshot/internal/discovery"
	"github.com/desertthunder/earshot/internal/models"
)

// progressUpdateMsg carries one engine progress event into the Update loop.
type progressUpdateMsg discovery.ProgressUpdate

// discoveryCompleteMsg carries the final ranked results once the engine finishes.
type discoveryCompleteMsg struct {
	results []models.DiscoveryResult
	trace   string
	err     error
}
