package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SSLCommerzConfig holds store credentials, API endpoints and callback URLs.
type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	PaymentAPI    string
	ValidationAPI string
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
}

// SSLCommerz is a client for the SSLCommerz hosted payment API.
type SSLCommerz struct {
	cfg    SSLCommerzConfig
	client *http.Client
}

func NewSSLCommerz(cfg SSLCommerzConfig, client *http.Client) *SSLCommerz {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SSLCommerz{cfg: cfg, client: client}
}

type sslInitResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	GatewayPageURL string `json:"GatewayPageURL"`
	SessionKey     string `json:"sessionkey"`
}

// CreateCheckout registers the transaction and returns the gateway page URL.
func (s *SSLCommerz) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if s.cfg.StoreID == "" {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("store_id", s.cfg.StoreID)
	form.Set("store_passwd", s.cfg.StorePassword)
	form.Set("total_amount", strconv.FormatFloat(req.Amount, 'f', 2, 64))
	form.Set("currency", "BDT")
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", s.cfg.SuccessURL)
	form.Set("fail_url", s.cfg.FailURL)
	form.Set("cancel_url", s.cfg.CancelURL)
	form.Set("ipn_url", s.cfg.IPNURL)
	form.Set("shipping_method", "N/A")
	form.Set("product_name", "Appointment")
	form.Set("product_category", "Service")
	form.Set("product_profile", "general")
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_add1", orNA(req.CustomerAddr))
	form.Set("cus_city", "Dhaka")
	form.Set("cus_country", "Bangladesh")
	form.Set("cus_phone", orNA(req.CustomerPhone))
	form.Set("value_a", req.AppointmentID)
	form.Set("value_b", req.PaymentID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PaymentAPI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out sslInitResponse
	if err := s.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("sslcommerz init: %w", err)
	}
	if !strings.EqualFold(out.Status, "SUCCESS") || out.GatewayPageURL == "" {
		return nil, fmt.Errorf("sslcommerz init failed: %s", out.FailedReason)
	}
	return &Checkout{SessionID: out.SessionKey, URL: out.GatewayPageURL}, nil
}

// Validation is the gateway's answer for a val_id.
type Validation struct {
	Status        string          `json:"status"`
	TransactionID string          `json:"tran_id"`
	ValID         string          `json:"val_id"`
	Amount        string          `json:"amount"`
	Raw           json.RawMessage `json:"-"`
}

// Valid reports whether the gateway confirmed the payment.
func (v *Validation) Valid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

// Validate asks the validation API whether valID is a genuine payment.
func (s *SSLCommerz) Validate(ctx context.Context, valID string) (*Validation, error) {
	if s.cfg.StoreID == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", s.cfg.StoreID)
	q.Set("store_passwd", s.cfg.StorePassword)
	q.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ValidationAPI+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := s.do(httpReq, &raw); err != nil {
		return nil, fmt.Errorf("sslcommerz validate: %w", err)
	}
	v := &Validation{Raw: raw}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("sslcommerz validate: %w", err)
	}
	return v, nil
}

func (s *SSLCommerz) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
