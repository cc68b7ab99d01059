package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dapp/internal/domain"
)

// HTTP is a JSON-over-HTTP client for the DAC service.
type HTTP struct {
	Base string
	HTTP *http.Client

	signer atomic.Pointer[Signer]
	tracer trace.Tracer
}

// DefaultTimeout bounds each request to the DAC service, so a hung service
// fails the stage that called it instead of leaving it loading.
const DefaultTimeout = 15 * time.Second

// NewHTTP returns a client for the service rooted at base.
func NewHTTP(base string) *HTTP {
	return &HTTP{
		Base:   strings.TrimRight(base, "/"),
		HTTP:   &http.Client{Timeout: DefaultTimeout},
		tracer: otel.Tracer("dapp/remote"),
	}
}

// UseSigner makes subsequent state-changing requests carry s's signature.
// A nil signer sends them unsigned.
func (c *HTTP) UseSigner(s *Signer) { c.signer.Store(s) }

// ---------- Whitelist & chain ----------

func (c *HTTP) FetchWhitelist(ctx context.Context) (domain.Whitelist, error) {
	var out domain.Whitelist
	if err := c.getJSON(ctx, "/whitelist", &out); err != nil {
		return domain.Whitelist{}, err
	}
	return out, nil
}

type networkResponse struct {
	NetworkID int64 `json:"networkId"`
}

func (c *HTTP) FetchNetworkID(ctx context.Context) (int64, error) {
	var out networkResponse
	if err := c.getJSON(ctx, "/network", &out); err != nil {
		return 0, err
	}
	return out.NetworkID, nil
}

type balanceResponse struct {
	Address domain.Address `json:"address"`
	Balance string         `json:"balance"`
}

func (c *HTTP) FetchBalance(ctx context.Context, addr domain.Address) (string, error) {
	var out balanceResponse
	if err := c.getJSON(ctx, "/balances/"+url.PathEscape(addr.String()), &out); err != nil {
		return "", err
	}
	return out.Balance, nil
}

// FetchConversionRates returns the latest fiat rates for symbol.
func (c *HTTP) FetchConversionRates(ctx context.Context, symbol string) (domain.ConversionRates, error) {
	var out domain.ConversionRates
	q := url.Values{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/conversionRates?"+q.Encode(), &out); err != nil {
		return domain.ConversionRates{}, err
	}
	return out, nil
}

// ---------- Users ----------

func (c *HTTP) FetchUser(ctx context.Context, addr domain.Address) (domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(addr.String()), &out); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

func (c *HTTP) SaveUser(ctx context.Context, u domain.User) (domain.User, error) {
	var out domain.User
	if err := c.send(ctx, http.MethodPut, "/users/"+url.PathEscape(u.Address.String()), u, &out); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// ---------- Entities ----------

func (c *HTTP) FetchDAC(ctx context.Context, id domain.EntityID) (domain.DAC, error) {
	var out domain.DAC
	if err := c.getJSON(ctx, "/dacs/"+url.PathEscape(id.String()), &out); err != nil {
		return domain.DAC{}, err
	}
	return out, nil
}

func (c *HTTP) SaveDAC(ctx context.Context, d domain.DAC) (domain.DAC, error) {
	var out domain.DAC
	method, path := saveTarget("/dacs", d.ID)
	if err := c.send(ctx, method, path, d, &out); err != nil {
		return domain.DAC{}, err
	}
	return out, nil
}

func (c *HTTP) ListDACs(ctx context.Context, owner domain.Address) ([]domain.DAC, error) {
	var out []domain.DAC
	if err := c.getJSON(ctx, "/dacs"+query("owner", owner.String()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) FetchCampaign(ctx context.Context, id domain.EntityID) (domain.Campaign, error) {
	var out domain.Campaign
	if err := c.getJSON(ctx, "/campaigns/"+url.PathEscape(id.String()), &out); err != nil {
		return domain.Campaign{}, err
	}
	return out, nil
}

func (c *HTTP) SaveCampaign(ctx context.Context, camp domain.Campaign) (domain.Campaign, error) {
	var out domain.Campaign
	method, path := saveTarget("/campaigns", camp.ID)
	if err := c.send(ctx, method, path, camp, &out); err != nil {
		return domain.Campaign{}, err
	}
	return out, nil
}

func (c *HTTP) ListCampaigns(ctx context.Context, owner domain.Address) ([]domain.Campaign, error) {
	var out []domain.Campaign
	if err := c.getJSON(ctx, "/campaigns"+query("owner", owner.String()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) FetchMilestone(ctx context.Context, id domain.EntityID) (domain.Milestone, error) {
	var out domain.Milestone
	if err := c.getJSON(ctx, "/milestones/"+url.PathEscape(id.String()), &out); err != nil {
		return domain.Milestone{}, err
	}
	return out, nil
}

func (c *HTTP) SaveMilestone(ctx context.Context, m domain.Milestone) (domain.Milestone, error) {
	var out domain.Milestone
	method, path := saveTarget("/milestones", m.ID)
	if err := c.send(ctx, method, path, m, &out); err != nil {
		return domain.Milestone{}, err
	}
	return out, nil
}

func (c *HTTP) ListMilestones(
	ctx context.Context,
	campaign domain.EntityID,
	owner domain.Address,
) ([]domain.Milestone, error) {
	var out []domain.Milestone
	q := query("campaign", campaign.String(), "owner", owner.String())
	if err := c.getJSON(ctx, "/milestones"+q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Donations ----------

// CreateDonation records a donation from the signing account.
func (c *HTTP) CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	var out domain.Donation
	if err := c.send(ctx, http.MethodPost, "/donations", d, &out); err != nil {
		return domain.Donation{}, err
	}
	return out, nil
}

func (c *HTTP) ListDonations(ctx context.Context, giver domain.Address) ([]domain.Donation, error) {
	var out []domain.Donation
	if err := c.getJSON(ctx, "/donations"+query("giver", giver.String()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) ListDelegations(ctx context.Context, owner domain.Address) ([]domain.Donation, error) {
	var out []domain.Donation
	if err := c.getJSON(ctx, "/delegations"+query("owner", owner.String()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- transport ----------

func saveTarget(collection string, id domain.EntityID) (method, path string) {
	if id == "" {
		return http.MethodPost, collection
	}
	return http.MethodPut, collection + "/" + url.PathEscape(id.String())
}

// query builds "?k=v&..." from key/value pairs, skipping empty values.
func query(kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *HTTP) send(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s := c.signer.Load(); s != nil {
		s.sign(req, body, time.Now())
	}
	return c.do(req, path, out)
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *HTTP) do(req *http.Request, path string, out any) (err error) {
	ctx, span := c.tracer.Start(req.Context(), "remote "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		))
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{
			Method:  req.Method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var body errorBody
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(b))
}

var (
	_ domain.RemoteService = (*HTTP)(nil)
	_ domain.RateSource    = (*HTTP)(nil)
)
