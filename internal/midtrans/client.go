// Package midtrans предоставляет клиент платёжного шлюза Midtrans Snap.
package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/salda-id/booking-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с API Midtrans Snap.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

// ChargeRequest описывает параметры создаваемого платежа.
type ChargeRequest struct {
	OrderID     string
	GrossAmount int64
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Description string
}

type chargePayload struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Email     string `json:"email"`
		Phone     string `json:"phone,omitempty"`
	} `json:"customer_details"`
	CreditCard struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
	ItemDetails []itemDetail `json:"item_details,omitempty"`
}

type itemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type chargeResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// NewClient создаёт клиент шлюза с указанным адресом API и серверным ключом.
func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// CreateCharge создаёт транзакцию в Midtrans Snap и возвращает токен оплаты.
// Повторных попыток при таймауте нет: повтор мог бы создать дубль платежа,
// ошибка возвращается вызывающему как есть.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("midtrans client not configured")
	}

	var payload chargePayload
	payload.TransactionDetails.OrderID = req.OrderID
	payload.TransactionDetails.GrossAmount = req.GrossAmount
	payload.CustomerDetails.FirstName = req.FirstName
	payload.CustomerDetails.LastName = req.LastName
	payload.CustomerDetails.Email = req.Email
	payload.CustomerDetails.Phone = req.Phone
	payload.CreditCard.Secure = true
	if req.Description != "" {
		payload.ItemDetails = []itemDetail{
			{ID: req.OrderID, Name: req.Description, Price: req.GrossAmount, Quantity: 1},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal charge: %w", err)
	}

	url := c.baseURL + "/snap/v1/transactions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var result chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if len(result.ErrorMessages) > 0 {
			return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.Join(result.ErrorMessages, "; "))
		}
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if result.Token == "" {
		return "", fmt.Errorf("empty token in gateway response")
	}

	return result.Token, nil
}

func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.serverKey+":"))
}

// MapTransactionStatus переводит статус транзакции Midtrans во внутренний
// статус платежа. Терминальный успех у шлюза — settlement (или capture для карт).
func MapTransactionStatus(status string) model.PaymentStatus {
	switch status {
	case "settlement", "capture", "success":
		return model.PaymentStatusSuccess
	case "pending", "authorize":
		return model.PaymentStatusPending
	case "expire":
		return model.PaymentStatusExpired
	default:
		return model.PaymentStatusFailure
	}
}
