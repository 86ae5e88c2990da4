package cli

import (
	"context"
	"io"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// bellCue rings the terminal bell once per activated alert.
type bellCue struct {
	w io.Writer
}

func (b *bellCue) Play(ctx context.Context, alert models.AlertCandidate) error {
	_, err := io.WriteString(b.w, "\a")
	return err
}
