package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-sync-core/internal/config"
	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/utils"
	"github.com/MKhiriev/go-sync-core/models"
)

const (
	opPullChanges = "GET /changes"
	opCreate      = "POST /records"
	opUpdate      = "PUT /records/{serverId}"
	opDelete      = "DELETE /records/{serverId}"
	opPing        = "HEAD /"
)

// Option configures the HTTP adapter.
type Option func(*httpRemoteAdapter)

// WithReachability reports the outcome of every round trip to obs.
func WithReachability(obs ReachabilityObserver) Option {
	return func(h *httpRemoteAdapter) {
		h.observer = obs
	}
}

type httpRemoteAdapter struct {
	client   *utils.HTTPClient
	observer ReachabilityObserver
	logger   *logger.Logger
}

// NewHTTPRemoteAdapter creates a [RemoteAdapter] talking to
// adapterCfg.HTTPAddress. Every request is bounded by
// adapterCfg.RequestTimeout and carries adapterCfg.Token as a bearer token
// when set.
func NewHTTPRemoteAdapter(adapterCfg config.ClientAdapter, log *logger.Logger, opts ...Option) (RemoteAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	h := &httpRemoteAdapter{
		client: utils.NewHTTPClient(log),
		logger: log,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.client.
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout).
		SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(adapterCfg.Token); token != "" {
		h.client.SetAuthToken(token)
	}

	if h.observer != nil {
		h.client.OnAfterResponse(func(_ *resty.Client, _ *resty.Response) error {
			h.observer.Observe(true)
			return nil
		})
		h.client.OnError(func(req *resty.Request, err error) {
			// resty wraps transport failures in ResponseError as well; only
			// a received HTTP response proves the server reachable
			var respErr *resty.ResponseError
			if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.RawResponse != nil {
				return
			}
			if errors.Is(err, context.Canceled) || req.Context().Err() != nil {
				return
			}
			h.observer.Observe(false)
		})
	}

	return h, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// PullChanges implements [RemoteAdapter].
func (h *httpRemoteAdapter) PullChanges(ctx context.Context, cursor string, limit int) (models.ChangesPage, error) {
	req := h.client.R().SetContext(ctx)
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.Get("/changes")
	if err != nil {
		return models.ChangesPage{}, h.transportFailure(ctx, opPullChanges, err)
	}
	if err = mapHTTPError(opPullChanges, resp); err != nil {
		h.logFailure(opPullChanges, err)
		return models.ChangesPage{}, err
	}

	var page models.ChangesPage
	if err = decodeBody(opPullChanges, resp, &page); err != nil {
		return models.ChangesPage{}, err
	}
	return page, nil
}

// Create implements [RemoteAdapter].
func (h *httpRemoteAdapter) Create(ctx context.Context, req models.CreateRecordRequest) (models.CreateRecordResponse, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/records")
	if err != nil {
		return models.CreateRecordResponse{}, h.transportFailure(ctx, opCreate, err)
	}
	if err = mapHTTPError(opCreate, resp); err != nil {
		h.logFailure(opCreate, err)
		return models.CreateRecordResponse{}, err
	}

	var out models.CreateRecordResponse
	if err = decodeBody(opCreate, resp, &out); err != nil {
		return models.CreateRecordResponse{}, err
	}
	if out.ServerID == "" {
		return models.CreateRecordResponse{}, &NetworkError{
			Op:         opCreate,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%w: empty serverId", ErrDecodingResponse),
		}
	}
	return out, nil
}

// Update implements [RemoteAdapter].
func (h *httpRemoteAdapter) Update(ctx context.Context, serverID string, req models.UpdateRecordRequest) (models.UpdateRecordResponse, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("serverId", serverID).
		SetBody(req).
		Put("/records/{serverId}")
	if err != nil {
		return models.UpdateRecordResponse{}, h.transportFailure(ctx, opUpdate, err)
	}

	if resp.StatusCode() == http.StatusConflict {
		var current models.StaleRecordResponse
		if err = json.Unmarshal(resp.Body(), &current); err != nil {
			return models.UpdateRecordResponse{}, &NetworkError{
				Op:         opUpdate,
				StatusCode: resp.StatusCode(),
				Err:        fmt.Errorf("%w: %w: %w", ErrConflict, ErrDecodingResponse, err),
			}
		}
		return models.UpdateRecordResponse{}, &StaleTokenError{ServerID: serverID, Current: current}
	}
	if err = mapHTTPError(opUpdate, resp); err != nil {
		h.logFailure(opUpdate, err)
		return models.UpdateRecordResponse{}, err
	}

	var out models.UpdateRecordResponse
	if err = decodeBody(opUpdate, resp, &out); err != nil {
		return models.UpdateRecordResponse{}, err
	}
	return out, nil
}

// Delete implements [RemoteAdapter].
func (h *httpRemoteAdapter) Delete(ctx context.Context, serverID string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParam("serverId", serverID).
		Delete("/records/{serverId}")
	if err != nil {
		return h.transportFailure(ctx, opDelete, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if err = mapHTTPError(opDelete, resp); err != nil {
		h.logFailure(opDelete, err)
		return err
	}
	return nil
}

// Ping implements [RemoteAdapter].
func (h *httpRemoteAdapter) Ping(ctx context.Context) error {
	if _, err := h.client.R().SetContext(ctx).Head("/"); err != nil {
		return h.transportFailure(ctx, opPing, err)
	}
	return nil
}

func (h *httpRemoteAdapter) transportFailure(ctx context.Context, op string, err error) error {
	mapped := mapTransportError(ctx, op, err)
	if h.logger != nil && IsTransient(mapped) {
		h.logger.Warn().
			Err(err).
			Str("func", "httpRemoteAdapter").
			Str("op", op).
			Msg("remote unreachable")
	}
	return mapped
}

func (h *httpRemoteAdapter) logFailure(op string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Err(err).
		Str("func", "httpRemoteAdapter").
		Str("op", op).
		Int("status", StatusCode(err)).
		Msg("remote call failed")
}

func decodeBody(op string, resp *resty.Response, dst any) error {
	if len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return &NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%w: %w", ErrDecodingResponse, err),
		}
	}
	return nil
}
