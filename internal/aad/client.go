// Package aad enumerates Azure Active Directory objects through
// Microsoft Graph: users, groups, service principals, applications, and
// directory roles, with owner/member expansion and back-fill support for
// principal IDs discovered only through RBAC.
package aad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stormspotter-go/stormspotter/internal/tokengate"
)

// firstPartyTenantID is Microsoft's own first-party tenant, whose service
// principals and applications skip owner expansion to avoid gratuitous
// 403s.
const firstPartyTenantID = "f8cdef31-a31e-4b4a-93e4-5f571e91255a"

// Client talks to a Microsoft Graph endpoint, gating every request on a
// Token Gate and decoding JSON responses.
type Client struct {
	graphBase string
	http      *http.Client
	gate      *tokengate.Gate
}

// NewClient builds a Client against graphBase (e.g.
// "https://graph.microsoft.com"), issuing requests only while gate is
// ready.
func NewClient(graphBase string, httpClient *http.Client, gate *tokengate.Gate) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{graphBase: strings.TrimRight(graphBase, "/"), http: httpClient, gate: gate}
}

// get waits for the gate, issues a bearer-authenticated GET against url,
// and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.gate.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for token gate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.gate.Token().Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// post is the POST counterpart of get, used by back-fill's getByIds call.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	if err := c.gate.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for token gate: %w", err)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(encoded)))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.gate.Token().Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// ProbeAccess issues the first enumeration probe (/me) and reports
// whether the credential has usable Graph access at all.
func (c *Client) ProbeAccess(ctx context.Context) error {
	var resp map[string]any
	url := fmt.Sprintf("%s/v1.0/me", c.graphBase)
	if err := c.get(ctx, url, &resp); err != nil {
		return err
	}
	if errBody, ok := resp["error"]; ok {
		return fmt.Errorf("graph access probe failed: %v", errBody)
	}
	return nil
}
