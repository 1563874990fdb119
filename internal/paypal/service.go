// Package paypal implements the payment gateway against the PayPal v1 REST
// API: sale payments for top-ups, webhook signature verification and
// synchronous payouts for withdrawals.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pvtela-wallet-go/internal/gateway"
	"pvtela-wallet-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	sandboxBaseUrl = "https://api.sandbox.paypal.com"
	liveBaseUrl    = "https://api.paypal.com"

	// PayPal rejects sender_batch_id values longer than 30 characters.
	maxSenderBatchIdLen = 30
)

type Service struct {
	baseUrl      string
	clientId     string
	clientSecret string
	webhookId    string
	httpClient   http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ gateway.PaymentGateway = (*Service)(nil)

func NewService(cfg models.PayPalConfig) (*Service, error) {
	if cfg.ClientId == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("paypal client credentials are required")
	}

	baseUrl := sandboxBaseUrl
	if cfg.Mode == "live" {
		baseUrl = liveBaseUrl
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Service{
		baseUrl:      baseUrl,
		clientId:     cfg.ClientId,
		clientSecret: cfg.ClientSecret,
		webhookId:    cfg.WebhookId,
		httpClient:   httpClient,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// getAccessToken returns a cached OAuth token, refreshing it via the
// client-credentials grant when less than a minute of validity remains.
func (s *Service) getAccessToken(ctx context.Context) (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	body := strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseUrl+"/v1/oauth2/token", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientId, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", gateway.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned status %d", gateway.ErrProvider, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", gateway.ErrProvider, err)
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return s.accessToken, nil
}

// doJson sends an authenticated JSON request and decodes the response into
// out. Non-2xx responses surface as ErrProvider with the response body.
func (s *Service) doJson(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseUrl+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", gateway.ErrProvider, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s returned status %d: %s",
			gateway.ErrProvider, method, path, resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding %s response: %v", gateway.ErrProvider, path, err)
		}
	}
	return nil
}

type paymentLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paymentResponse struct {
	Id    string        `json:"id"`
	State string        `json:"state"`
	Links []paymentLink `json:"links"`
}

func (s *Service) CreateOrder(ctx context.Context, params gateway.CreateOrderParams) (*gateway.Order, error) {
	payload := map[string]interface{}{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"redirect_urls": map[string]string{
			"return_url": params.ApproveUrl,
			"cancel_url": params.CancelUrl,
		},
		"transactions": []map[string]interface{}{{
			"amount": map[string]string{
				"total":    params.Amount,
				"currency": params.Currency,
			},
			"description": "Wallet top-up",
		}},
	}

	var payment paymentResponse
	if err := s.doJson(ctx, http.MethodPost, "/v1/payments/payment", payload, &payment); err != nil {
		return nil, fmt.Errorf("unable to create payment: %w", err)
	}

	var approvalUrl string
	for _, link := range payment.Links {
		if link.Rel == "approval_url" {
			approvalUrl = link.Href
			break
		}
	}
	if approvalUrl == "" {
		return nil, fmt.Errorf("%w: payment %s carries no approval_url link", gateway.ErrProvider, payment.Id)
	}

	zap.L().Debug("PayPal payment created",
		zap.String("payment_id", payment.Id),
		zap.String("state", payment.State))

	return &gateway.Order{
		PaymentId:   payment.Id,
		ApprovalUrl: approvalUrl,
	}, nil
}

func (s *Service) ExecutePayment(ctx context.Context, paymentId, payerId string) (*gateway.ExecuteResult, error) {
	payload := map[string]string{"payer_id": payerId}

	var payment paymentResponse
	path := fmt.Sprintf("/v1/payments/payment/%s/execute", url.PathEscape(paymentId))
	if err := s.doJson(ctx, http.MethodPost, path, payload, &payment); err != nil {
		return nil, fmt.Errorf("unable to execute payment %s: %w", paymentId, err)
	}

	if payment.State != "approved" {
		return nil, fmt.Errorf("%w: payment %s executed but state is %q",
			gateway.ErrProvider, paymentId, payment.State)
	}

	zap.L().Debug("PayPal payment executed",
		zap.String("payment_id", payment.Id),
		zap.String("state", payment.State))

	return &gateway.ExecuteResult{
		PaymentId: payment.Id,
		State:     payment.State,
	}, nil
}

type webhookEvent struct {
	Id           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		Id            string `json:"id"`
		ParentPayment string `json:"parent_payment"`
	} `json:"resource"`
}

type verifySignatureResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhook authenticates a webhook delivery against the configured
// webhook id using PayPal's verification endpoint. Only a SUCCESS verdict
// yields an event; everything else is ErrVerificationFailed.
func (s *Service) VerifyWebhook(ctx context.Context, rawBody []byte, headers http.Header) (*gateway.Event, error) {
	payload := map[string]interface{}{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        s.webhookId,
		"webhook_event":     json.RawMessage(rawBody),
	}

	var verdict verifySignatureResponse
	if err := s.doJson(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrVerificationFailed, err)
	}
	if verdict.VerificationStatus != "SUCCESS" {
		return nil, fmt.Errorf("%w: verification status %q",
			gateway.ErrVerificationFailed, verdict.VerificationStatus)
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event body: %v", gateway.ErrVerificationFailed, err)
	}

	return &gateway.Event{
		Id:        event.Id,
		Type:      event.EventType,
		PaymentId: event.Resource.ParentPayment,
		SaleId:    event.Resource.Id,
	}, nil
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchId string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
	Items []struct {
		TransactionStatus string `json:"transaction_status"`
		Errors            struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"items"`
}

// CreatePayout issues a single-item synchronous payout. The caller's
// idempotency key becomes the sender batch id, so a retried request cannot
// produce a second payout.
func (s *Service) CreatePayout(ctx context.Context, params gateway.PayoutParams) (*gateway.PayoutResult, error) {
	senderBatchId := params.IdempotencyKey
	if len(senderBatchId) > maxSenderBatchIdLen {
		senderBatchId = senderBatchId[:maxSenderBatchIdLen]
	}

	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": senderBatchId,
			"email_subject":   "You have a payout from your wallet",
		},
		"items": []map[string]interface{}{{
			"recipient_type": "EMAIL",
			"amount": map[string]string{
				"value":    params.Amount,
				"currency": params.Currency,
			},
			"receiver":       params.RecipientEmail,
			"sender_item_id": uuid.New().String(),
			"note":           "Wallet withdrawal payout",
		}},
	}

	var payout payoutResponse
	if err := s.doJson(ctx, http.MethodPost, "/v1/payments/payouts?sync_mode=true", payload, &payout); err != nil {
		return nil, fmt.Errorf("unable to create payout: %w", err)
	}
	if len(payout.Items) == 0 {
		return nil, fmt.Errorf("%w: payout batch %s returned no items",
			gateway.ErrProvider, payout.BatchHeader.PayoutBatchId)
	}

	item := payout.Items[0]
	errorDetail := ""
	if item.Errors.Message != "" {
		errorDetail = item.Errors.Name + ": " + item.Errors.Message
	}

	zap.L().Debug("PayPal payout response",
		zap.String("payout_batch_id", payout.BatchHeader.PayoutBatchId),
		zap.String("batch_status", payout.BatchHeader.BatchStatus),
		zap.String("item_status", item.TransactionStatus))

	return &gateway.PayoutResult{
		BatchId:     payout.BatchHeader.PayoutBatchId,
		ItemStatus:  item.TransactionStatus,
		ErrorDetail: errorDetail,
	}, nil
}
