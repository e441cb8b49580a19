//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailpitClient reads captured emails back out of the Mailpit REST API.
type MailpitClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMailpitClient returns a client for the Mailpit API at host:port.
func NewMailpitClient(host string, port int) *MailpitClient {
	return &MailpitClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// MailpitMessage is a captured email, reduced to the fields the tests
// assert on.
type MailpitMessage struct {
	ID      string           `json:"ID"`
	To      []MailpitAddress `json:"To"`
	Subject string           `json:"Subject"`
}

// MailpitAddress is one recipient of a captured email.
type MailpitAddress struct {
	Address string `json:"Address"`
	Name    string `json:"Name"`
}

func (c *MailpitClient) getJSON(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetMessages lists every message currently in the inbox.
func (c *MailpitClient) GetMessages() ([]MailpitMessage, error) {
	var result struct {
		Messages []MailpitMessage `json:"messages"`
	}
	if err := c.getJSON("/api/v1/messages", &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// GetMessageByID fetches one message.
func (c *MailpitClient) GetMessageByID(id string) (*MailpitMessage, error) {
	var msg MailpitMessage
	if err := c.getJSON("/api/v1/message/"+id, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteAllMessages clears the inbox so a test starts from zero.
func (c *MailpitClient) DeleteAllMessages() error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/messages", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete messages: status %d", resp.StatusCode)
	}
	return nil
}

// WaitForMessages polls the inbox until it holds at least count
// messages or the timeout elapses.
func (c *MailpitClient) WaitForMessages(count int, timeout time.Duration) ([]MailpitMessage, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for time.Now().Before(deadline) {
		messages, err := c.GetMessages()
		if err != nil {
			lastErr = err
		} else if len(messages) >= count {
			return messages, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("timed out waiting for %d messages: %w", count, lastErr)
	}
	return nil, fmt.Errorf("timed out waiting for %d messages", count)
}
