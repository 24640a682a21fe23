// Package gateway implements the backend gateway the ordering client depends
// on. The canonical backend is a spreadsheet-backed web endpoint that routes
// every call through a single URL with an `action` query parameter and
// answers with a uniform {success, data, mensaje, error} envelope.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"comedor/internal/metrics"
	"comedor/internal/models"
)

// envelope is the uniform response wrapper used by every backend action.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Mensaje string          `json:"mensaje"`
	Error   string          `json:"error"`
}

// Client calls the cafeteria backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the given web app URL. Every call has a
// bounded wait of `timeout`; on expiry the operation is reported as a
// transport failure.
func NewClient(baseURL string, timeout time.Duration, ratePerSecond float64, burst int, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for GET actions.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// DisponibilidadTurno fetches reservation availability for one shift.
func (c *Client) DisponibilidadTurno(ctx context.Context, turno string) (*models.Disponibilidad, error) {
	const op = "checkDisponibilidad"
	cacheKey := "disponibilidad:" + turno

	var disp models.Disponibilidad
	if c.readCache(ctx, cacheKey, &disp) {
		return &disp, nil
	}

	env, err := c.doGet(ctx, op, url.Values{"turno": {turno}})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, &disp); err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}
	if disp.Turno == "" {
		disp.Turno = turno
	}
	if disp.Mensaje == "" {
		disp.Mensaje = env.Mensaje
	}
	c.writeCache(ctx, cacheKey, disp)
	return &disp, nil
}

// DisponibilidadTurnos fetches availability for every shift in one call.
func (c *Client) DisponibilidadTurnos(ctx context.Context) (map[string]models.Disponibilidad, error) {
	const op = "checkTodosLosTurnos"

	var out map[string]models.Disponibilidad
	if c.readCache(ctx, "disponibilidad:todos", &out) {
		return out, nil
	}

	env, err := c.doGet(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}
	for id, d := range out {
		if d.Turno == "" {
			d.Turno = id
			out[id] = d
		}
	}
	c.writeCache(ctx, "disponibilidad:todos", out)
	return out, nil
}

// MenuDelDia fetches the menu for a shift. forzar bypasses the cache.
func (c *Client) MenuDelDia(ctx context.Context, turno string, forzar bool) (*models.MenuDelDia, error) {
	const op = "getMenuDelDia"
	cacheKey := "menu:" + turno

	var menu models.MenuDelDia
	if !forzar && c.readCache(ctx, cacheKey, &menu) {
		return &menu, nil
	}

	env, err := c.doGet(ctx, op, url.Values{"turno": {turno}})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, &menu); err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}
	if menu.Mensaje == "" {
		menu.Mensaje = env.Mensaje
	}
	c.writeCache(ctx, cacheKey, menu)
	return &menu, nil
}

// CrearReserva submits a reservation. Submission is not retried here: a
// timeout may mean the request reached the backend, so retries are always
// user-initiated and the backend tolerates at-least-once delivery. The
// request id lets the backend deduplicate if it chooses to.
func (c *Client) CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error) {
	const op = "crearReserva"

	env, err := c.doPost(ctx, op, reserva)
	if err != nil {
		return nil, err
	}

	var data struct {
		Reserva models.Confirmacion `json:"reserva"`
		Mensaje string              `json:"mensaje"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}
	return &data.Reserva, nil
}

// Reservas lists existing reservations, optionally filtered by date
// (YYYY-MM-DD) and shift.
func (c *Client) Reservas(ctx context.Context, fecha, turno string) ([]models.ReservaRegistrada, error) {
	const op = "getReservas"

	params := url.Values{}
	if fecha != "" {
		params.Set("fecha", fecha)
	}
	if turno != "" {
		params.Set("turno", turno)
	}

	env, err := c.doGet(ctx, op, params)
	if err != nil {
		return nil, err
	}
	var out []models.ReservaRegistrada
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}
	return out, nil
}

func (c *Client) doGet(ctx context.Context, action string, params url.Values) (*envelope, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, &TransportError{Operacion: action, Err: err}
	}
	return c.do(req, action)
}

func (c *Client) doPost(ctx context.Context, action string, body any) (*envelope, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Operacion: action, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?action="+url.QueryEscape(action), strings.NewReader(string(data)))
	if err != nil {
		return nil, &TransportError{Operacion: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	return c.do(req, action)
}

func (c *Client) do(req *http.Request, action string) (*envelope, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &TransportError{Operacion: action, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncGatewayError(action)
		return nil, &TransportError{Operacion: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.IncGatewayError(action)
		return nil, &TransportError{Operacion: action, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.IncGatewayError(action)
		return nil, &TransportError{Operacion: action, Err: err}
	}

	if !env.Success {
		mensaje := env.Mensaje
		if mensaje == "" {
			mensaje = env.Error
		}
		c.logger.Warn().Str("action", action).Str("mensaje", mensaje).Msg("backend rejected request")
		return nil, &BusinessError{Operacion: action, Mensaje: mensaje}
	}
	return &env, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
