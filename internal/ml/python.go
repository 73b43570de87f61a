package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// PythonPipeline runs a joblib-serialized scikit-learn pipeline in a Python
// subprocess. Each call starts one interpreter; requests and responses are
// exchanged as JSON over stdin/stdout.
type PythonPipeline struct {
	modelPath  string
	pythonPath string
	scriptPath string
	timeout    time.Duration
	features   []string
	model      string
}

type pythonCheck struct {
	Features []string `json:"features"`
	Model    string   `json:"model"`
	Error    string   `json:"error,omitempty"`
}

type pythonExplain struct {
	Explanation
	Error string `json:"error,omitempty"`
}

// NewPythonPipeline locates a Python interpreter, installs the inference
// script and checks that the artifact loads. Any failure is returned as an
// *ArtifactLoadError.
func NewPythonPipeline(ctx context.Context, modelPath, pythonPath string, timeout time.Duration) (*PythonPipeline, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &ArtifactLoadError{Path: modelPath, Err: err}
	}

	if pythonPath == "" {
		found, err := findPython()
		if err != nil {
			return nil, &ArtifactLoadError{Path: modelPath, Err: err}
		}
		pythonPath = found
	}

	scriptPath, err := createInferenceScript()
	if err != nil {
		return nil, &ArtifactLoadError{Path: modelPath, Err: fmt.Errorf("failed to create inference script: %w", err)}
	}

	p := &PythonPipeline{
		modelPath:  modelPath,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		timeout:    timeout,
	}

	var check pythonCheck
	if err := p.run(ctx, "check", nil, &check); err != nil {
		return nil, &ArtifactLoadError{Path: modelPath, Err: err}
	}
	if check.Error != "" {
		return nil, &ArtifactLoadError{Path: modelPath, Err: errors.New(check.Error)}
	}
	p.features = check.Features
	p.model = check.Model

	log.Info().
		Str("model_path", modelPath).
		Str("python_path", pythonPath).
		Str("model", check.Model).
		Int("features", len(check.Features)).
		Msg("Python pipeline loaded")

	return p, nil
}

// InputColumns returns the column names the pipeline was fit on, when the
// artifact records them.
func (p *PythonPipeline) InputColumns() []string {
	return p.features
}

// Predict implements Pipeline.
func (p *PythonPipeline) Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error) {
	req := PredictRequest{Columns: columns, Rows: sanitizeRows(rows)}

	var resp PredictResponse
	if err := p.run(ctx, "predict", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		log.Error().
			Str("python_error", resp.Error).
			Str("error_kind", resp.ErrorKind).
			Int("rows", len(rows)).
			Msg("Python inference returned error")
		return nil, responseError(resp.ErrorKind, resp.Error)
	}
	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(rows), len(resp.Predictions))
	}
	return resp.Predictions, nil
}

// Explain implements Explainer.
func (p *PythonPipeline) Explain(ctx context.Context) (*Explanation, error) {
	var resp pythonExplain
	if err := p.run(ctx, "explain", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python explain error: %s", resp.Error)
	}
	return &resp.Explanation, nil
}

// run executes the inference script in the given mode. The script writes a
// JSON document to stdout even when it fails, so stdout is decoded before
// the exit status is looked at.
func (p *PythonPipeline) run(ctx context.Context, mode string, req any, out any) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.pythonPath, p.scriptPath, mode, p.modelPath)
	if req != nil {
		body, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		cmd.Stdin = bytes.NewReader(body)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("python %s timed out after %v", mode, p.timeout)
	}

	if stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), out); err == nil {
			return nil
		} else if runErr == nil {
			return fmt.Errorf("failed to parse %s response: %w, stdout: %s", mode, err, stdout.String())
		}
	}

	if runErr != nil {
		log.Error().
			Err(runErr).
			Str("python_path", p.pythonPath).
			Str("script_path", p.scriptPath).
			Str("model_path", p.modelPath).
			Str("mode", mode).
			Str("stderr", stderr.String()).
			Msg("Python inference execution failed")

		if strings.Contains(stderr.String(), "No module named") {
			return fmt.Errorf("python dependency missing: %w, stderr: %s", runErr, stderr.String())
		}
		return fmt.Errorf("python %s failed: %w, stderr: %s", mode, runErr, stderr.String())
	}

	return fmt.Errorf("python %s produced no output", mode)
}

func findPython() (string, error) {
	var candidates []string

	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates = append(candidates,
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		)
	}

	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates,
			filepath.Join(wd, "venv", "bin", "python3"),
			filepath.Join(wd, ".venv", "bin", "python3"),
		)
	}

	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, path)
		}
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cmd := exec.Command(candidate, "-c", "import sys, joblib, sklearn, pandas; print('Python', sys.version)")
		if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "Python 3") {
			log.Info().Str("python_path", candidate).Msg("Using Python interpreter")
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no Python 3 interpreter with joblib, scikit-learn and pandas found")
}

func createInferenceScript() (string, error) {
	dir, err := os.MkdirTemp("", "house-insights-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "pipeline_inference.py")
	if err := os.WriteFile(path, []byte(inferenceScript), 0755); err != nil {
		return "", err
	}
	return path, nil
}

const inferenceScript = `#!/usr/bin/env python3
import json
import sys

try:
    import joblib
    import numpy as np
    import pandas as pd
except ImportError as e:
    print(json.dumps({"error": str(e)}))
    sys.exit(1)

SCHEMA_HINTS = ("unknown categor", "columns are missing", "feature names", "found unknown")


def error_kind(exc):
    msg = str(exc).lower()
    return "schema" if any(h in msg for h in SCHEMA_HINTS) else ""


def predict(pipeline):
    request = json.load(sys.stdin)
    frame = pd.DataFrame(request["rows"], columns=request["columns"])
    try:
        values = pipeline.predict(frame)
    except (ValueError, KeyError) as e:
        return {"error": str(e), "error_kind": error_kind(e)}
    return {"predictions": [float(v) for v in np.ravel(values)]}


def explain(pipeline):
    steps = getattr(pipeline, "named_steps", {})
    pre = steps.get("preprocessor")
    model = steps.get("model", pipeline)
    names = list(pre.get_feature_names_out()) if pre is not None else []
    coef = getattr(model, "coef_", None)
    if coef is None:
        return {"coefficients": [{"feature": n, "value": 0.0} for n in names], "has_coefficients": False}
    coef = np.ravel(coef)
    if not names:
        names = ["x%d" % i for i in range(len(coef))]
    return {
        "coefficients": [{"feature": n, "value": float(c)} for n, c in zip(names, coef)],
        "has_coefficients": True,
    }


def check(pipeline):
    steps = getattr(pipeline, "named_steps", {})
    model = steps.get("model", pipeline)
    features = [str(f) for f in getattr(pipeline, "feature_names_in_", [])]
    return {"features": features, "model": type(model).__name__}


def main():
    if len(sys.argv) != 3:
        print(json.dumps({"error": "usage: pipeline_inference.py <predict|explain|check> <model_path>"}))
        sys.exit(1)
    mode, model_path = sys.argv[1], sys.argv[2]
    try:
        pipeline = joblib.load(model_path)
        handler = {"predict": predict, "explain": explain, "check": check}[mode]
        print(json.dumps(handler(pipeline)))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
