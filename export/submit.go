package export

import (
	"apparel-studio/core"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Submitter hands an exported design to the order service.
type Submitter interface {
	Submit(ctx context.Context, b *Bundle, token string) (orderID string, err error)
}

// HTTPSubmitter posts the bundle as multipart form data.
type HTTPSubmitter struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSubmitter(endpoint string) *HTTPSubmitter {
	return &HTTPSubmitter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ImageField is the form field carrying the image of view v.
func ImageField(v core.View) string {
	return string(v) + "DesignImage"
}

func (s *HTTPSubmitter) Submit(ctx context.Context, b *Bundle, token string) (string, error) {
	body, contentType, err := encodeForm(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrSubmit, err)
	}

	var reply struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Order   struct {
			ID string `json:"_id"`
		} `json:"order"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := reply.Message
		if msg == "" {
			msg = reply.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %d %s", ErrSubmit, resp.StatusCode, msg)
	}

	for _, id := range []string{reply.ID, reply.MongoID, reply.Order.ID} {
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: response carries no order id", ErrSubmit)
}

func encodeForm(b *Bundle) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, v := range b.Views {
		part, err := w.CreateFormFile(ImageField(v), fmt.Sprintf("%s-design.png", v))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(b.Images[v]); err != nil {
			return nil, "", err
		}
	}

	designs, err := json.Marshal(b.Metadata.Designs)
	if err != nil {
		return nil, "", err
	}
	address, err := json.Marshal(b.Metadata.ShippingAddress)
	if err != nil {
		return nil, "", err
	}
	fields := []struct{ name, value string }{
		{"color", b.Metadata.Color},
		{"designs", string(designs)},
		{"shippingAddress", string(address)},
		{"quantity", strconv.Itoa(b.Metadata.Quantity)},
		{"price", strconv.Itoa(b.Metadata.UnitPrice)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
