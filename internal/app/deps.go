package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwulff/voicetext/internal/config"
	"github.com/jwulff/voicetext/internal/db"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/export"
	"github.com/jwulff/voicetext/internal/settings"
	"github.com/jwulff/voicetext/internal/telemetry"
	"github.com/rs/zerolog"
)

// History records sessions and finalized segments.
type History interface {
	BeginSession(ctx context.Context, id, locale, engine string, startedAt time.Time) error
	EndSession(ctx context.Context, id string, end db.SessionEnd) error
	AppendSegment(ctx context.Context, sessionID, text string, confidence float64, at time.Time) (db.Segment, error)
}

// Levels feeds the audio visualizer.
type Levels interface {
	Start()
	Stop()
	Frame() []uint8
	SetNoiseGate(on bool)
}

// Deps are the collaborators of the model. Nil collaborators are simply
// absent capabilities.
type Deps struct {
	// Context bounds every engine instance and persistence call.
	Context   context.Context
	Engine    engine.Factory
	Levels    Levels
	Settings  *settings.Store
	History   History
	Recorder  *telemetry.Recorder
	Log       zerolog.Logger
	ExportDir string
	Languages []string

	ExcludePaused bool

	Now   func() time.Time
	NewID func() string
	// Clipboard reports whether copying is possible; nil means export.Available.
	Clipboard func() bool
}

func (d *Deps) defaults() {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Clipboard == nil {
		d.Clipboard = export.Available
	}
	if len(d.Languages) == 0 {
		d.Languages = config.DefaultLanguages
	}
}

// Capabilities lists which optional collaborators are present. It is
// computed once at startup; the view and key handlers consult it instead of
// probing collaborators again.
type Capabilities struct {
	Recognition bool
	Levels      bool
	Clipboard   bool
	History     bool
	Settings    bool
}

// Detect checks each collaborator once.
func Detect(d Deps) Capabilities {
	caps := Capabilities{
		Levels:   d.Levels != nil,
		History:  d.History != nil,
		Settings: d.Settings != nil,
	}
	if d.Engine != nil {
		caps.Recognition = d.Engine.Supported()
	}
	if d.Clipboard != nil {
		caps.Clipboard = d.Clipboard()
	}
	return caps
}
