package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	timestampLayout        = "20060102150405"
	defaultTransactionType = "CustomerPayBillOnline"
	tokenRefreshMargin     = time.Minute
	maxReferenceLength     = 12
	maxDescriptionLength   = 13
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Config параметры подключения к Daraja API
type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	TransactionType string
	Timeout         time.Duration
	Location        *time.Location // пояс для Timestamp запроса
}

// Client клиент M-Pesa Daraja (STK push)
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient создает новый экземпляр клиента M-Pesa
func NewClient(cfg Config, log Logger) *Client {
	if cfg.TransactionType == "" {
		cfg.TransactionType = defaultTransactionType
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
		now: time.Now,
	}
}

// STKPush инициирует списание. Сумма округляется вверх до целых шиллингов.
// Ненулевой ResponseCode или HTTP ошибка возвращают ErrGateway.
func (c *Client) STKPush(ctx context.Context, req *STKPushRequest) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().In(c.cfg.Location).Format(timestampLayout)
	body := stkPushBody{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            req.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(req.AccountReference, maxReferenceLength),
		TransactionDesc:   truncate(req.Description, maxDescriptionLength),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrInternal, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetToken()
	}
	if resp.StatusCode != http.StatusOK {
		var gwErr errorResponse
		_ = json.Unmarshal(raw, &gwErr)
		return nil, fmt.Errorf("%w: status %d: %s %s", ErrGateway, resp.StatusCode, gwErr.ErrorCode, gwErr.ErrorMessage)
	}

	var result STKPushResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrGateway, err)
	}
	if result.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: response code %s: %s", ErrGateway, result.ResponseCode, result.ResponseDescription)
	}

	c.log.Info("Mpesa: STK push accepted checkout=%s merchant=%s", result.CheckoutRequestID, result.MerchantRequestID)
	return &result, nil
}

// accessToken возвращает закешированный токен или получает новый
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create token request: %v", ErrInternal, err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: failed to decode token: %v", ErrAuth, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	ttl := time.Hour
	if seconds, err := strconv.Atoi(token.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	if ttl > tokenRefreshMargin {
		ttl -= tokenRefreshMargin
	}

	c.token = token.AccessToken
	c.tokenExpiry = c.now().Add(ttl)
	return c.token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// Password пароль STK запроса: base64(shortcode + passkey + timestamp)
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// truncate обрезает строку до max символов, не разрывая руны
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
