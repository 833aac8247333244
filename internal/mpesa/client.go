package mpesa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukahub/duka-backend/internal/config"
)

var (
	// ErrGateway wraps every transport or gateway-reported failure so callers
	// can treat them uniformly: no payment record may exist for a failed push.
	ErrGateway      = errors.New("mpesa gateway error")
	ErrInvalidPhone = errors.New("phone number must be a Kenyan mobile number")
)

// STKResponse is the correlation pair returned by a successful push request.
type STKResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// Gateway is what the payment service needs from this package.
type Gateway interface {
	InitiateSTKPush(phone string, amount float64, accountRef string) (STKResponse, error)
}

// tokenCache holds the short-lived OAuth token. It is owned by the Client so
// no credential state hides at package level.
type tokenCache struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

type Client struct {
	cfg   config.MpesaConfig
	http  *http.Client
	cache tokenCache
	now   func() time.Time
}

func NewClient(cfg config.MpesaConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

// NormalizePhone rewrites a local-format Kenyan number (07XXXXXXXX) to its
// international form (2547XXXXXXXX). Already-international numbers pass
// through unchanged.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	switch {
	case len(phone) == 10 && strings.HasPrefix(phone, "0"):
		return "254" + phone[1:], nil
	case len(phone) == 12 && strings.HasPrefix(phone, "254"):
		return phone, nil
	default:
		return "", ErrInvalidPhone
	}
}

// token returns a cached access token, refreshing it when it is within a
// minute of expiring.
func (c *Client) token() (string, error) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	if c.cache.token != "" && c.now().Before(c.cache.expires.Add(-time.Minute)) {
		return c.cache.token, nil
	}

	req, err := http.NewRequest(http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrGateway, res.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrGateway)
	}

	ttl := time.Hour
	if secs, err := time.ParseDuration(body.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}
	c.cache.token = body.AccessToken
	c.cache.expires = c.now().Add(ttl)
	return c.cache.token, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// InitiateSTKPush asks the gateway to prompt the payer's device and returns
// the correlation pair for the eventual callback. The phone must already be
// normalized.
func (c *Client) InitiateSTKPush(phone string, amount float64, accountRef string) (STKResponse, error) {
	token, err := c.token()
	if err != nil {
		return STKResponse{}, err
	}

	timestamp := c.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(amount)),
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Order Payment",
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return STKResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	req, err := http.NewRequest(http.MethodPost,
		c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(buf))
	if err != nil {
		return STKResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return STKResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return STKResponse{}, fmt.Errorf("%w: push request returned %d", ErrGateway, res.StatusCode)
	}

	var out STKResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return STKResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if out.ResponseCode != "0" {
		return STKResponse{}, fmt.Errorf("%w: gateway rejected push: %s", ErrGateway, out.ResponseDesc)
	}
	if out.CheckoutRequestID == "" {
		return STKResponse{}, fmt.Errorf("%w: response missing CheckoutRequestID", ErrGateway)
	}
	return out, nil
}
