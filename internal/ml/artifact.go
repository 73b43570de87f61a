package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Supported artifact kinds.
const (
	KindLinear = "linear"
	KindPython = "python"
	KindRemote = "remote"
)

// ModelMetadata describes a trained pipeline. It is read from
// model_metadata.json next to the artifact.
type ModelMetadata struct {
	Version         string          `json:"version"`
	TrainedAt       time.Time       `json:"trained_at"`
	Features        []string        `json:"features"`
	TargetTransform TargetTransform `json:"target_transform"`
	Model           string          `json:"model"`
	TrainingRows    int             `json:"training_rows"`
}

// LoadOptions selects and locates the artifact.
type LoadOptions struct {
	Kind       string
	Path       string
	PythonPath string
	URL        string
	Timeout    time.Duration
}

// Artifact is a loaded pipeline plus what is known about it.
type Artifact struct {
	Pipeline Pipeline
	Metadata *ModelMetadata
	// Modified is the artifact file's modification time; zero for remote
	// pipelines.
	Modified time.Time
}

type columnLister interface {
	InputColumns() []string
}

// LoadArtifact loads the pipeline once at startup. Every failure is an
// *ArtifactLoadError.
func LoadArtifact(ctx context.Context, opts LoadOptions) (*Artifact, error) {
	a := &Artifact{}

	switch opts.Kind {
	case KindLinear, "":
		p, err := LoadLinearPipeline(opts.Path)
		if err != nil {
			return nil, err
		}
		a.Pipeline = p
		a.Metadata = metadataOrDefault(opts.Path, p.export.Version, p.export.Model)
	case KindPython:
		p, err := NewPythonPipeline(ctx, opts.Path, opts.PythonPath, opts.Timeout)
		if err != nil {
			return nil, err
		}
		a.Pipeline = p
		a.Metadata = metadataOrDefault(opts.Path, "unknown", p.model)
	case KindRemote:
		p, err := NewRemotePipeline(ctx, opts.URL, opts.Timeout)
		if err != nil {
			return nil, err
		}
		a.Pipeline = p
		a.Metadata = p.Info()
	default:
		return nil, &ArtifactLoadError{Path: opts.Path, Err: fmt.Errorf("unknown model kind %q", opts.Kind)}
	}

	switch a.Metadata.TargetTransform {
	case "":
		a.Metadata.TargetTransform = TransformLog1p
	case TransformLog1p, TransformNone:
	default:
		return nil, &ArtifactLoadError{
			Path: opts.Path,
			Err:  fmt.Errorf("unsupported target transform %q", a.Metadata.TargetTransform),
		}
	}

	if opts.Kind != KindRemote {
		if info, err := os.Stat(opts.Path); err == nil {
			a.Modified = info.ModTime()
		}
	}

	log.Info().
		Str("kind", opts.Kind).
		Str("version", a.Metadata.Version).
		Str("model", a.Metadata.Model).
		Str("target_transform", string(a.Metadata.TargetTransform)).
		Msg("Model artifact loaded")

	return a, nil
}

// InputColumns returns the raw columns the pipeline declares, falling back
// to the metadata's feature list.
func (a *Artifact) InputColumns() []string {
	if cl, ok := a.Pipeline.(columnLister); ok {
		if cols := cl.InputColumns(); len(cols) > 0 {
			return cols
		}
	}
	return a.Metadata.Features
}

// Age returns how long ago the artifact was written, or trained when the
// file time is unknown.
func (a *Artifact) Age() time.Duration {
	switch {
	case !a.Modified.IsZero():
		return time.Since(a.Modified)
	case !a.Metadata.TrainedAt.IsZero():
		return time.Since(a.Metadata.TrainedAt)
	default:
		return 0
	}
}

// CheckColumns warns about pipeline inputs the dataset lacks. They are not
// fatal: Align fills them with 0.
func (a *Artifact) CheckColumns(expected []string) {
	declared := a.InputColumns()
	if len(declared) == 0 {
		return
	}

	have := make(map[string]bool, len(expected))
	for _, c := range expected {
		have[c] = true
	}
	var missing []string
	for _, c := range declared {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		log.Warn().Strs("columns", missing).Msg("Pipeline inputs absent from the dataset")
	}
}

func metadataOrDefault(modelPath, version, model string) *ModelMetadata {
	md, err := loadModelMetadata(modelPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load model metadata, using defaults")
		return &ModelMetadata{
			Version:         version,
			Model:           model,
			TargetTransform: TransformLog1p,
		}
	}
	if md.Version == "" {
		md.Version = version
	}
	if md.Model == "" {
		md.Model = model
	}
	return md
}

func loadModelMetadata(modelPath string) (*ModelMetadata, error) {
	dir := filepath.Dir(modelPath)
	primary := filepath.Join(dir, "model_metadata.json")

	if md, err := decodeMetadata(primary); err == nil {
		return md, nil
	}

	// Fall back to the newest timestamped metadata file.
	pattern := filepath.Join(dir, "model_metadata_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no metadata files found in %s", dir)
	}
	sort.Strings(matches)
	return decodeMetadata(matches[len(matches)-1])
}

func decodeMetadata(path string) (*ModelMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var md ModelMetadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, err
	}
	return &md, nil
}
