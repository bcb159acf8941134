package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/earshot/internal/models"
)

var _ list.Item = resultItem{}

// resultItem wraps [models.DiscoveryResult] to implement [list.Item].
type resultItem struct {
	result models.DiscoveryResult
}

func (i resultItem) FilterValue() string { return i.result.Track.Name }
func (i resultItem) Title() string       { return i.result.Track.Name }
func (i resultItem) Description() string {
	desc := fmt.Sprintf("%s • score %.3f", i.result.Track.ArtistLine(), i.result.Score)
	if len(i.result.Reasons) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.result.Reasons, ", "))
	}
	return desc
}
