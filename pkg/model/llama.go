package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the conventional address of a local llama-server or
// Ollama-compatible inference daemon.
const DefaultEndpoint = "http://localhost:11434"

// progressInterval bounds how often generation progress is reported.
// Emitting per-token would flood observers on long documents.
const progressInterval = 500 * time.Millisecond

// LlamaEngine talks to a local llama-server/Ollama-compatible HTTP API.
// Load pins the model in memory, Unload releases it by setting a zero
// keep-alive.
type LlamaEngine struct {
	endpoint string
	client   *http.Client
}

// NewLlamaEngine creates an engine against the given endpoint. An empty
// endpoint uses DefaultEndpoint.
func NewLlamaEngine(endpoint string) *LlamaEngine {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &LlamaEngine{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Stream    bool            `json:"stream"`
	KeepAlive any             `json:"keep_alive,omitempty"`
	Options   generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Load issues an empty generation with an indefinite keep-alive, which
// brings the weights into the server's memory and keeps them resident for
// the duration of the conversion.
func (e *LlamaEngine) Load(ctx context.Context, model string, contextTokens int) error {
	req := generateRequest{
		Model:     model,
		Stream:    false,
		KeepAlive: -1,
		Options:   generateOptions{NumCtx: contextTokens},
	}
	body, err := e.post(ctx, "/api/generate", req)
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(io.Discard, body)
	return err
}

// Generate streams a completion, accumulating the response and reporting
// progress at a bounded rate.
func (e *LlamaEngine) Generate(ctx context.Context, model, prompt string, opts GenerateOptions, emit func(chars int)) (string, error) {
	req := generateRequest{
		Model:     model,
		Prompt:    prompt,
		Stream:    true,
		KeepAlive: -1,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			NumCtx:      opts.ContextTokens,
		},
	}
	body, err := e.post(ctx, "/api/generate", req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var sb strings.Builder
	lastEmit := time.Now()
	dec := json.NewDecoder(body)
	for {
		var chunk generateChunk
		if err := dec.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("stream decode failed: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("inference server error: %s", chunk.Error)
		}
		sb.WriteString(chunk.Response)

		if emit != nil && time.Since(lastEmit) >= progressInterval {
			emit(sb.Len())
			lastEmit = time.Now()
		}
		if chunk.Done {
			break
		}
	}

	if emit != nil {
		emit(sb.Len())
	}
	return sb.String(), nil
}

// Unload releases the model's memory by setting a zero keep-alive.
func (e *LlamaEngine) Unload(ctx context.Context, model string) error {
	req := generateRequest{
		Model:     model,
		Stream:    false,
		KeepAlive: 0,
	}
	body, err := e.post(ctx, "/api/generate", req)
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(io.Discard, body)
	return err
}

func (e *LlamaEngine) post(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference server request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, string(payload))
	}
	return resp.Body, nil
}
