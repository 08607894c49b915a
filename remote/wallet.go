package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Transaction struct {
	ID        ID        `json:"id"`
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Invoice struct {
	ID        ID        `json:"id"`
	Number    string    `json:"number"`
	Status    string    `json:"status"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	IssuedAt  time.Time `json:"issued_at"`
	CourseIDs []ID      `json:"courses,omitempty"`
}

func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "wallet/transactions/", auth: true}, &raw); err != nil {
		return nil, fmt.Errorf("listing wallet transactions: %w", err)
	}

	txs, err := decodeList[Transaction](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding wallet transactions: %w", err)
	}
	return txs, nil
}

func (c *Client) Invoices(ctx context.Context) ([]Invoice, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "wallet/invoices/", auth: true}, &raw); err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	invoices, err := decodeList[Invoice](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding invoices: %w", err)
	}
	return invoices, nil
}
