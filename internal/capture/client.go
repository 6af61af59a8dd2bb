package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	// Portal scrapes routinely take over a minute; size the transport
	// timeout for the slow path.
	defaultTimeout = 180 * time.Second

	consultaOABPath    = "/v1/consultas/oab"
	resolverCaptchaURL = "/v1/captchas/resolver"
)

// Client talks to the external capture service that performs the actual
// portal login and scraping. The service is opaque to this worker: it either
// returns structured case records, a captcha challenge, or an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// NewClient builds a capture client. When credentials are provided the client
// authenticates with OAuth2 client credentials; otherwise requests go out
// unauthenticated (local capture service).
func NewClient(baseURL string, creds Credentials) *Client {
	httpClient := &http.Client{Timeout: defaultTimeout}

	if creds.ClientID != "" && creds.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// captureResponse is the loose success/error union the capture service speaks
// on the wire. It is converted to a tagged CaptureResult before leaving this
// package.
type captureResponse struct {
	Success         bool               `json:"success"`
	Processo        *ProcessoJuridico  `json:"processo"`
	Processos       []ProcessoJuridico `json:"processos"`
	Error           string             `json:"error"`
	CaptchaRequired bool               `json:"captchaRequired"`
	Captcha         *CaptchaChallenge  `json:"captcha"`
}

type consultaOABRequest struct {
	OAB           string `json:"oab"`
	TribunalSigla string `json:"tribunalSigla"`
	TenantID      string `json:"tenantId"`
}

type resolverCaptchaRequest struct {
	CaptchaID   string `json:"captchaId"`
	CaptchaText string `json:"captchaText"`
}

// CaptureByOAB captures every case registered to the given OAB number on the
// given tribunal's portal.
func (c *Client) CaptureByOAB(ctx context.Context, oab, tribunalSigla, tenantID string) (CaptureResult, error) {
	return c.post(ctx, consultaOABPath, consultaOABRequest{
		OAB:           oab,
		TribunalSigla: tribunalSigla,
		TenantID:      tenantID,
	})
}

// ResolveCaptcha submits a human-supplied answer for a previously issued
// challenge and resumes the suspended capture.
func (c *Client) ResolveCaptcha(ctx context.Context, captchaID, captchaText string) (CaptureResult, error) {
	return c.post(ctx, resolverCaptchaURL, resolverCaptchaRequest{
		CaptchaID:   captchaID,
		CaptchaText: captchaText,
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (CaptureResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capture request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture response: %w", err)
	}

	// The service reports capture-level failures inside a 200 body; only
	// transport-level problems surface as non-200.
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded captureResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode capture response: %w", err)
	}

	return decoded.toResult(), nil
}

func (r captureResponse) toResult() CaptureResult {
	if !r.Success {
		if r.CaptchaRequired && r.Captcha != nil && r.Captcha.ID != "" {
			return CaptureCaptcha{
				Challenge: *r.Captcha,
				Reason:    r.Error,
			}
		}
		return CaptureFailure{Message: r.Error}
	}

	processos := r.Processos
	if len(processos) == 0 && r.Processo != nil {
		processos = []ProcessoJuridico{*r.Processo}
	}
	return CaptureSuccess{Processos: processos}
}
