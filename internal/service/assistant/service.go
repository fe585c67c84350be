package assistant

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"

	"readmegen/internal/ingest"
	"readmegen/internal/models"
	"readmegen/internal/prompt"
	"readmegen/internal/render"
	"readmegen/internal/service/ai"
	"readmegen/internal/session"
)

// ErrNoReadme is returned by output accessors before a successful generation.
var ErrNoReadme = errors.New("no README generated yet")

// Dispatcher bounds how many generation calls run at once.
type Dispatcher interface {
	Do(key string, fn func()) error
}

type Options struct {
	Sessions   *session.Manager
	Generator  ai.Generator
	ConfigErr  error // set when generation cannot run, e.g. a missing credential
	Dispatcher Dispatcher
	Renderer   *render.Renderer

	AllowedExtensions []string
	MaxFileBytes      int64
	Provider          string
	Model             string
}

// Service handles the session lifecycle: uploads, generation, reset and output.
type Service struct {
	sessions   *session.Manager
	generator  ai.Generator
	configErr  error
	dispatcher Dispatcher
	renderer   *render.Renderer
	allow      ingest.AllowList
	maxFile    int64
	provider   string
	model      string
}

// NewService builds a new assistant service.
func NewService(opts Options) (*Service, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session manager required")
	}
	if opts.Generator == nil && opts.ConfigErr == nil {
		return nil, errors.New("generator or configuration error required")
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &Service{
		sessions:   opts.Sessions,
		generator:  opts.Generator,
		configErr:  opts.ConfigErr,
		dispatcher: opts.Dispatcher,
		renderer:   renderer,
		allow:      ingest.NewAllowList(opts.AllowedExtensions),
		maxFile:    opts.MaxFileBytes,
		provider:   opts.Provider,
		model:      opts.Model,
	}, nil
}

// ConfigError reports why generation is unavailable, or nil.
func (s *Service) ConfigError() error {
	return s.configErr
}

// Snapshot is the read view of a session handed to the UI.
type Snapshot struct {
	ID           string           `json:"id"`
	Description  string           `json:"description"`
	Output       string           `json:"output"`
	Generated    bool             `json:"generated"`
	ResetCounter int64            `json:"reset_counter"`
	LastError    string           `json:"last_error,omitempty"`
	Files        []ingest.Preview `json:"files"`
	Stats        models.Stats     `json:"stats"`
	ConfigError  string           `json:"config_error,omitempty"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
}

func (s *Service) snapshot(state *models.SessionState) *Snapshot {
	snap := &Snapshot{
		ID:           state.ID,
		Description:  state.Description,
		Output:       state.Output,
		Generated:    state.Generated(),
		ResetCounter: state.ResetCounter,
		LastError:    state.LastError,
		Files:        make([]ingest.Preview, 0, state.Files.Len()),
		Stats:        models.ComputeStats(state),
		Provider:     s.provider,
		Model:        s.model,
	}
	for _, rec := range state.Files.Records {
		snap.Files = append(snap.Files, ingest.NewPreview(rec))
	}
	if s.configErr != nil {
		snap.ConfigError = s.configErr.Error()
	}
	return snap
}

// Snapshot returns the current view of a session, creating it on first access.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	state, err := s.sessions.View(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.snapshot(state), nil
}

// Rejection explains why an upload was not ingested.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type UploadResult struct {
	Snapshot *Snapshot   `json:"session"`
	Accepted []string    `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// Upload ingests a batch and replaces the session's file set with it. A batch
// with no accepted files leaves the current files in place.
func (s *Service) Upload(ctx context.Context, sessionID string, sources []ingest.Source) (*UploadResult, error) {
	result := &UploadResult{Accepted: []string{}, Rejected: []Rejection{}}
	accepted := make([]ingest.Source, 0, len(sources))
	for _, src := range sources {
		switch {
		case !s.allow.Allows(src.Name):
			result.Rejected = append(result.Rejected, Rejection{Name: src.Name, Reason: "file type not allowed"})
		case s.maxFile > 0 && src.Size > s.maxFile:
			result.Rejected = append(result.Rejected, Rejection{Name: src.Name, Reason: fmt.Sprintf("file exceeds %d bytes", s.maxFile)})
		default:
			accepted = append(accepted, src)
		}
	}

	if len(accepted) == 0 {
		snap, err := s.Snapshot(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		result.Snapshot = snap
		return result, nil
	}

	files := ingest.Ingest(accepted)
	for _, rec := range files.Records {
		result.Accepted = append(result.Accepted, rec.Name)
	}
	state, err := s.sessions.Update(ctx, sessionID, func(st *models.SessionState) error {
		st.Files = files
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save uploads: %w", err)
	}
	result.Snapshot = s.snapshot(state)
	return result, nil
}

// FailureMessage is the text shown for a failed generation.
func FailureMessage(f *ai.Failure) string {
	return "Error generating README: " + f.Message
}

// Generate composes the prompt from the session's files and the given description
// and replaces the output on success. A failed call leaves the previous output in
// place and returns the *ai.Failure. Once the call is issued it is not cancelled
// with ctx.
func (s *Service) Generate(ctx context.Context, sessionID, description string) (*Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	var failure *ai.Failure

	state, err := s.sessions.Update(ctx, sessionID, func(st *models.SessionState) error {
		req, err := prompt.NewRequest(description, st.Files)
		if err != nil {
			return err
		}
		if s.configErr != nil {
			return s.configErr
		}
		st.Description = description

		var res ai.Result
		call := func() { res = s.generator.Generate(ctx, req.Prompt()) }
		if s.dispatcher == nil {
			call()
		} else if err := s.dispatcher.Do(sessionID, call); err != nil {
			return err
		}

		if !res.OK() {
			failure = res.Err
			st.LastError = FailureMessage(res.Err)
			log.Printf("generate readme for session %s failed: %v", sessionID, res.Err)
			return nil
		}
		st.Output = res.Text
		st.LastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return s.snapshot(state), failure
	}
	return s.snapshot(state), nil
}

// Reset clears the whole session and bumps its reset counter.
func (s *Service) Reset(ctx context.Context, sessionID string) (*Snapshot, error) {
	state, err := s.sessions.Update(ctx, sessionID, func(st *models.SessionState) error {
		st.Reset()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	return s.snapshot(state), nil
}

// Clear drops the generated output and uploaded files.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Snapshot, error) {
	state, err := s.sessions.Update(ctx, sessionID, func(st *models.SessionState) error {
		st.Clear()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return s.snapshot(state), nil
}

// Readme renders the stored output in the requested display mode.
func (s *Service) Readme(ctx context.Context, sessionID string, mode render.Mode) (template.HTML, error) {
	output, err := s.Download(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(output, mode)
}

// Download returns the stored output unchanged.
func (s *Service) Download(ctx context.Context, sessionID string) (string, error) {
	state, err := s.sessions.View(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !state.Generated() {
		return "", ErrNoReadme
	}
	return state.Output, nil
}
