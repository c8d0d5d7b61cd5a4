package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropDatabas3/siwauth/internal/metrics"
)

// Client implementa Verifier contra un servicio relay por HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient crea un Client. El timeout acota cada llamada; un deadline del
// contexto del caller manda igual si es más corto. Sin reintentos: un fallo
// acá es terminal para el request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) VerifySignIn(ctx context.Context, reqBody Request) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RelayLatency.Observe(time.Since(start).Seconds()) }()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify-sign-in", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("relay: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: upstream unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("relay: body: %w", err)
	}

	// 5xx es infraestructura; 2xx/4xx traen un Result estructurado
	// (el rechazo de firma viaja como {valid:false, reason}).
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("relay: upstream status %d", resp.StatusCode)
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("relay: respuesta inválida (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}
