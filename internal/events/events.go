package events

import (
	"time"

	"github.com/mfenderov/pageocr/pkg/models"
)

// NavigationCompleteEvent is sent when a page finished loading in the viewer.
type NavigationCompleteEvent struct {
	Page      models.Page // Page as reported by the client
	Timestamp time.Time   // When the navigation completed
}
