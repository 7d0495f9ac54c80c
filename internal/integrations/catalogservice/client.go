package catalogservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент каталога услуг (название и цена услуги на момент бронирования)
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента CatalogService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetService получает услугу по ID
func (c *Client) GetService(ctx context.Context, serviceID int64) (*Service, error) {
	url := fmt.Sprintf("%s/internal/services/%d", c.baseURL, serviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("CatalogService: request for service id=%d failed: %v", serviceID, err)
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrServiceNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var service Service
	if err := json.NewDecoder(resp.Body).Decode(&service); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	c.log.Info("CatalogService: fetched service id=%d price=%s", service.ID, service.Price)
	return &service, nil
}

// StaticCatalog каталог из конфигурации, используется без внешнего сервиса
type StaticCatalog struct {
	services map[int64]Service
}

// NewStaticCatalog создает каталог из списка услуг
func NewStaticCatalog(services []Service) *StaticCatalog {
	catalog := &StaticCatalog{services: make(map[int64]Service, len(services))}
	for _, s := range services {
		catalog.services[s.ID] = s
	}
	return catalog
}

// GetService возвращает услугу или ErrServiceNotFound
func (c *StaticCatalog) GetService(_ context.Context, serviceID int64) (*Service, error) {
	service, ok := c.services[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &service, nil
}
