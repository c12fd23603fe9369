package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// conferenceResponse is the create-space reply in every shape the
// provider has been seen returning. Extraction tries the fields in a
// fixed order rather than branching on exceptions.
type conferenceResponse struct {
	MeetingURI  string       `json:"meetingUri"`
	MeetingCode string       `json:"meetingCode"`
	Name        string       `json:"name"`
	EntryPoints []entryPoint `json:"entryPoints"`
}

type entryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

// linkExtractor pulls a joinable URI out of one response field.
// The first extractor yielding a non-empty URI wins.
type linkExtractor struct {
	source  string
	extract func(conferenceResponse) string
}

var linkExtractors = []linkExtractor{
	{"meetingUri", func(r conferenceResponse) string {
		return r.MeetingURI
	}},
	{"meetingCode", func(r conferenceResponse) string {
		if r.MeetingCode == "" {
			return ""
		}
		return joinURL(r.MeetingCode)
	}},
	{"name", func(r conferenceResponse) string {
		code, ok := strings.CutPrefix(r.Name, "spaces/")
		if !ok || code == "" {
			return ""
		}
		return joinURL(code)
	}},
	{"entryPoints", func(r conferenceResponse) string {
		var first string
		for _, ep := range r.EntryPoints {
			if ep.URI == "" {
				continue
			}
			if ep.EntryPointType == "video" {
				return ep.URI
			}
			if first == "" {
				first = ep.URI
			}
		}
		return first
	}},
}

func joinURL(code string) string {
	return "https://meet.google.com/" + code
}

// ConferenceClient provisions video-meeting spaces. Provisioning is
// best-effort: any failure degrades to a booking without a link.
type ConferenceClient struct {
	baseURL string
	http    *http.Client
	tokens  *TokenCache
	logger  *slog.Logger
}

func NewConferenceClient(cfg ConferenceConfig, tokens *TokenCache, logger *slog.Logger) *ConferenceClient {
	return &ConferenceClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// Provision creates a conferencing space for meeting types that need
// one. Non-podcast bookings return nil without a network call; so
// does every failure path, since a missing link must never block the
// booking.
func (c *ConferenceClient) Provision(ctx context.Context, mt MeetingType) *ConferenceLink {
	if mt != MeetingPodcast {
		return nil
	}

	resp, err := c.createSpace(ctx)
	if err != nil {
		c.logger.Warn("conferencing provisioning failed, booking proceeds without link", "error", err)
		return nil
	}

	for _, ex := range linkExtractors {
		if uri := ex.extract(*resp); uri != "" {
			return &ConferenceLink{URI: uri, Provider: "google-meet", Source: ex.source}
		}
	}
	c.logger.Warn("conferencing response had no extractable join uri")
	return nil
}

func (c *ConferenceClient) createSpace(ctx context.Context) (*conferenceResponse, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/spaces", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, externalErr("conferencing", 0, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, externalErr("conferencing", res.StatusCode, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, externalErr("conferencing", res.StatusCode,
			fmt.Errorf("create space returned %s: %s", res.Status, strings.TrimSpace(string(data))))
	}

	var out conferenceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, externalErr("conferencing", res.StatusCode, err)
	}
	return &out, nil
}
