// Package querychatctl is a command line client for the querychat HTTP API.
package querychatctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(defaults, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, err)
	var usage usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintln(stderr)
		_, _ = fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	return 1
}

func newRootCommand(defaults Options, stdout io.Writer) *cobra.Command {
	var (
		baseURL string
		apiKey  string
		timeout time.Duration
	)
	newClient := func() *client {
		httpClient := defaults.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: timeout}
		}
		return &client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: strings.TrimSpace(apiKey)}
	}

	root := &cobra.Command{
		Use:           "querychatctl",
		Short:         "Talk to a querychat API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "querychat API base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	root.PersistentFlags().DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")

	for _, probe := range []struct{ name, path, short string }{
		{"health", "/v1/health", "GET /v1/health"},
		{"ready", "/v1/ready", "GET /v1/ready"},
	} {
		path := probe.path
		root.AddCommand(&cobra.Command{
			Use:   probe.name,
			Short: probe.short,
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				body, err := newClient().do(cmd.Context(), http.MethodGet, path, nil)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(stdout, prettyJSON(body))
				return nil
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List the models served by the API",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listModels(cmd.Context(), newClient(), stdout)
		},
	})

	var (
		model  string
		stream bool
	)
	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question in natural language",
		Args: func(_ *cobra.Command, args []string) error {
			if strings.TrimSpace(strings.Join(args, " ")) == "" {
				return usageError{errors.New("ask needs a question")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return askQuestion(cmd.Context(), newClient(), stdout, model, strings.Join(args, " "), stream)
		},
	}
	ask.Flags().StringVar(&model, "model", firstNonEmpty(defaults.Model, "LMS-MODEL"), "model id sent with the request")
	ask.Flags().BoolVar(&stream, "stream", false, "request a server-sent event stream")
	root.AddCommand(ask)

	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("%s takes no arguments", cmd.Name())}
	}
	return nil
}

func listModels(ctx context.Context, c *client, stdout io.Writer) error {
	body, err := c.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return err
	}
	var listing struct {
		Data []struct {
			ID      string `json:"id"`
			Created int64  `json:"created"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return fmt.Errorf("decode models: %w", err)
	}
	data := pterm.TableData{{"ID", "OWNER", "CREATED"}}
	for _, model := range listing.Data {
		data = append(data, []string{model.ID, model.OwnedBy, time.Unix(model.Created, 0).UTC().Format(time.RFC3339)})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, table)
	return nil
}

type askRequest struct {
	Model    string       `json:"model"`
	Messages []askMessage `json:"messages"`
	Stream   bool         `json:"stream"`
}

type askMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func askQuestion(ctx context.Context, c *client, stdout io.Writer, model, question string, stream bool) error {
	payload, err := json.Marshal(askRequest{
		Model:    model,
		Messages: []askMessage{{Role: "user", Content: question}},
		Stream:   stream,
	})
	if err != nil {
		return err
	}
	if stream {
		return c.stream(ctx, "/v1/chat/completions", payload, stdout)
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", payload)
	if err != nil {
		return err
	}
	var completion struct {
		Choices []struct {
			Message askMessage `json:"message"`
		} `json:"choices"`
		Visualizations []struct {
			Title       string `json:"title"`
			Type        string `json:"type"`
			ImageBase64 string `json:"image_base64"`
			ImagePath   string `json:"image_path"`
		} `json:"visualizations"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return errors.New("completion has no choices")
	}
	_, _ = fmt.Fprintln(stdout, completion.Choices[0].Message.Content)
	if len(completion.Visualizations) > 0 {
		items := make([]pterm.BulletListItem, 0, len(completion.Visualizations))
		for _, viz := range completion.Visualizations {
			text := fmt.Sprintf("%s (%s)", viz.Title, viz.Type)
			if image, err := base64.StdEncoding.DecodeString(viz.ImageBase64); err == nil && len(image) > 0 {
				text = fmt.Sprintf("%s (%s, %s)", viz.Title, viz.Type, humanize.Bytes(uint64(len(image))))
			}
			if viz.ImagePath != "" {
				text += " " + viz.ImagePath
			}
			items = append(items, pterm.BulletListItem{Level: 0, Text: text})
		}
		list, err := pterm.DefaultBulletList.WithItems(items).Srender()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(stdout, list)
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	resp, err := c.send(ctx, method, path, payload, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// stream prints content deltas as they arrive until the [DONE] sentinel.
func (c *client) stream(ctx context.Context, path string, payload []byte, stdout io.Writer) error {
	resp, err := c.send(ctx, http.MethodPost, path, payload, "text/event-stream")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			_, _ = fmt.Fprintln(stdout)
			return nil
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			_, _ = fmt.Fprint(stdout, choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream ended without [DONE]")
}

func (c *client) send(ctx context.Context, method, path string, payload []byte, accept string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func prettyJSON(raw []byte) string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return strings.TrimSpace(string(raw))
	}
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	return string(formatted)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
