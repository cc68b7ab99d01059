package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"dapp/internal/domain"
	"dapp/internal/store/sqlite/migrations"
)

// Store persists remote-service state in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---------- Users ----------

// FetchUser returns the profile for addr.
func (s *Store) FetchUser(ctx context.Context, addr domain.Address) (domain.User, error) {
	var u domain.User
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT address, name, email, avatar, linkedin, giver_id, updated_at
		   FROM users WHERE address = ?`, addr.String(),
	).Scan(&u.Address, &u.Name, &u.Email, &u.Avatar, &u.LinkedIn, &u.GiverID, &updated)
	if err != nil {
		return domain.User{}, notFound(err, "fetch user")
	}
	return u, nil
}

// SaveUser inserts or replaces the profile for user.Address.
func (s *Store) SaveUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.Address.IsZero() {
		return domain.User{}, fmt.Errorf("user address is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (address, name, email, avatar, linkedin, giver_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   name = excluded.name,
		   email = excluded.email,
		   avatar = excluded.avatar,
		   linkedin = excluded.linkedin,
		   giver_id = excluded.giver_id,
		   updated_at = excluded.updated_at`,
		u.Address.String(), u.Name, u.Email, u.Avatar, u.LinkedIn, u.GiverID, toMillis(s.now()),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// ---------- DACs ----------

const dacColumns = `id, owner_address, title, description, summary, community_url, image,
	delegate_id, created_at, updated_at`

func scanDAC(row interface{ Scan(...any) error }) (domain.DAC, error) {
	var d domain.DAC
	var created, updated int64
	err := row.Scan(&d.ID, &d.OwnerAddress, &d.Title, &d.Description, &d.Summary,
		&d.CommunityURL, &d.Image, &d.DelegateID, &created, &updated)
	if err != nil {
		return domain.DAC{}, err
	}
	d.CreatedAt, d.UpdatedAt = fromMillis(created), fromMillis(updated)
	return d, nil
}

// FetchDAC returns one DAC by id.
func (s *Store) FetchDAC(ctx context.Context, id domain.EntityID) (domain.DAC, error) {
	d, err := scanDAC(s.db.QueryRowContext(ctx,
		`SELECT `+dacColumns+` FROM dacs WHERE id = ?`, id.String()))
	if err != nil {
		return domain.DAC{}, notFound(err, "fetch dac")
	}
	return d, nil
}

// SaveDAC creates the DAC when it has no id, otherwise updates it. New DACs
// get the next free delegate id.
func (s *Store) SaveDAC(ctx context.Context, d domain.DAC) (domain.DAC, error) {
	now := s.now().UTC()
	d.UpdatedAt = now
	if d.ID == "" {
		d.ID = domain.EntityID(uuid.NewString())
		d.CreatedAt = now
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO dacs (`+dacColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(delegate_id), 0) + 1 FROM dacs), ?, ?)`,
			d.ID.String(), d.OwnerAddress.String(), d.Title, d.Description, d.Summary,
			d.CommunityURL, d.Image, toMillis(d.CreatedAt), toMillis(d.UpdatedAt),
		)
		if err != nil {
			return domain.DAC{}, fmt.Errorf("create dac: %w", err)
		}
		return s.FetchDAC(ctx, d.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE dacs SET title = ?, description = ?, summary = ?, community_url = ?, image = ?,
		   updated_at = ?
		 WHERE id = ?`,
		d.Title, d.Description, d.Summary, d.CommunityURL, d.Image, toMillis(d.UpdatedAt), d.ID.String(),
	)
	if err != nil {
		return domain.DAC{}, fmt.Errorf("update dac: %w", err)
	}
	if err := requireRow(res); err != nil {
		return domain.DAC{}, err
	}
	return s.FetchDAC(ctx, d.ID)
}

// ListDACs lists DACs, newest first, optionally filtered by owner.
func (s *Store) ListDACs(ctx context.Context, owner domain.Address) ([]domain.DAC, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dacColumns+` FROM dacs
		  WHERE (? = '' OR owner_address = ?)
		  ORDER BY created_at DESC, id`, owner.String(), owner.String())
	if err != nil {
		return nil, fmt.Errorf("list dacs: %w", err)
	}
	defer rows.Close()

	out := []domain.DAC{}
	for rows.Next() {
		d, err := scanDAC(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dac: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---------- Campaigns ----------

const campaignColumns = `id, owner_address, reviewer_address, title, description, summary,
	community_url, image, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (domain.Campaign, error) {
	var c domain.Campaign
	var created, updated int64
	err := row.Scan(&c.ID, &c.OwnerAddress, &c.ReviewerAddress, &c.Title, &c.Description,
		&c.Summary, &c.CommunityURL, &c.Image, &created, &updated)
	if err != nil {
		return domain.Campaign{}, err
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return c, nil
}

// FetchCampaign returns one campaign by id.
func (s *Store) FetchCampaign(ctx context.Context, id domain.EntityID) (domain.Campaign, error) {
	c, err := scanCampaign(s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id.String()))
	if err != nil {
		return domain.Campaign{}, notFound(err, "fetch campaign")
	}
	return c, nil
}

// SaveCampaign creates the campaign when it has no id, otherwise updates it.
func (s *Store) SaveCampaign(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	now := s.now().UTC()
	c.UpdatedAt = now
	if c.ID == "" {
		c.ID = domain.EntityID(uuid.NewString())
		c.CreatedAt = now
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO campaigns (`+campaignColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), c.OwnerAddress.String(), c.ReviewerAddress.String(), c.Title,
			c.Description, c.Summary, c.CommunityURL, c.Image,
			toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
		)
		if err != nil {
			return domain.Campaign{}, fmt.Errorf("create campaign: %w", err)
		}
		return s.FetchCampaign(ctx, c.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET reviewer_address = ?, title = ?, description = ?, summary = ?,
		   community_url = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		c.ReviewerAddress.String(), c.Title, c.Description, c.Summary, c.CommunityURL, c.Image,
		toMillis(c.UpdatedAt), c.ID.String(),
	)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	if err := requireRow(res); err != nil {
		return domain.Campaign{}, err
	}
	return s.FetchCampaign(ctx, c.ID)
}

// ListCampaigns lists campaigns, newest first, optionally filtered by owner.
func (s *Store) ListCampaigns(ctx context.Context, owner domain.Address) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		  WHERE (? = '' OR owner_address = ?)
		  ORDER BY created_at DESC, id`, owner.String(), owner.String())
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---------- Milestones ----------

const milestoneColumns = `id, campaign_id, owner_address, recipient_address, reviewer_address,
	title, description, image, max_amount, status, created_at, updated_at`

func scanMilestone(row interface{ Scan(...any) error }) (domain.Milestone, error) {
	var m domain.Milestone
	var created, updated int64
	err := row.Scan(&m.ID, &m.CampaignID, &m.OwnerAddress, &m.RecipientAddress,
		&m.ReviewerAddress, &m.Title, &m.Description, &m.Image, &m.MaxAmount, &m.Status,
		&created, &updated)
	if err != nil {
		return domain.Milestone{}, err
	}
	m.CreatedAt, m.UpdatedAt = fromMillis(created), fromMillis(updated)
	return m, nil
}

// FetchMilestone returns one milestone by id.
func (s *Store) FetchMilestone(ctx context.Context, id domain.EntityID) (domain.Milestone, error) {
	m, err := scanMilestone(s.db.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id.String()))
	if err != nil {
		return domain.Milestone{}, notFound(err, "fetch milestone")
	}
	return m, nil
}

// SaveMilestone creates the milestone when it has no id, otherwise updates
// it. The parent campaign must exist.
func (s *Store) SaveMilestone(ctx context.Context, m domain.Milestone) (domain.Milestone, error) {
	now := s.now().UTC()
	m.UpdatedAt = now
	if m.ID == "" {
		m.ID = domain.EntityID(uuid.NewString())
		m.CreatedAt = now
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO milestones (`+milestoneColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID.String(), m.CampaignID.String(), m.OwnerAddress.String(),
			m.RecipientAddress.String(), m.ReviewerAddress.String(), m.Title, m.Description,
			m.Image, m.MaxAmount, m.Status, toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
		)
		if isConstraintError(err) {
			return domain.Milestone{}, fmt.Errorf("campaign %s: %w", m.CampaignID, domain.ErrNotFound)
		}
		if err != nil {
			return domain.Milestone{}, fmt.Errorf("create milestone: %w", err)
		}
		return s.FetchMilestone(ctx, m.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE milestones SET recipient_address = ?, reviewer_address = ?, title = ?,
		   description = ?, image = ?, max_amount = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		m.RecipientAddress.String(), m.ReviewerAddress.String(), m.Title, m.Description, m.Image,
		m.MaxAmount, m.Status, toMillis(m.UpdatedAt), m.ID.String(),
	)
	if err != nil {
		return domain.Milestone{}, fmt.Errorf("update milestone: %w", err)
	}
	if err := requireRow(res); err != nil {
		return domain.Milestone{}, err
	}
	return s.FetchMilestone(ctx, m.ID)
}

// ListMilestones lists milestones, oldest first, filtered by campaign and/or
// owner when those are non-empty.
func (s *Store) ListMilestones(
	ctx context.Context,
	campaign domain.EntityID,
	owner domain.Address,
) ([]domain.Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones
		  WHERE (? = '' OR campaign_id = ?) AND (? = '' OR owner_address = ?)
		  ORDER BY created_at, id`,
		campaign.String(), campaign.String(), owner.String(), owner.String())
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	out := []domain.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---------- Donations ----------

const donationColumns = `id, giver_address, owner_type, owner_id, delegate_id, amount, status, created_at`

// Donation statuses.
const (
	DonationWaiting   = "Waiting"
	DonationCommitted = "Committed"
)

func scanDonation(row interface{ Scan(...any) error }) (domain.Donation, error) {
	var d domain.Donation
	var created int64
	err := row.Scan(&d.ID, &d.GiverAddress, &d.OwnerType, &d.OwnerID, &d.DelegateID,
		&d.Amount, &d.Status, &created)
	if err != nil {
		return domain.Donation{}, err
	}
	d.CreatedAt = fromMillis(created)
	return d, nil
}

// CreateDonation records a donation. Donations to a DAC start as Waiting
// delegations; everything else is Committed.
func (s *Store) CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	if d.ID == "" {
		d.ID = domain.EntityID(uuid.NewString())
	}
	if d.Status == "" {
		d.Status = DonationCommitted
		if d.OwnerType == domain.KindDAC {
			d.Status = DonationWaiting
		}
	}
	d.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.GiverAddress.String(), string(d.OwnerType), d.OwnerID.String(),
		d.DelegateID.String(), d.Amount, d.Status, toMillis(d.CreatedAt),
	)
	if err != nil {
		return domain.Donation{}, fmt.Errorf("create donation: %w", err)
	}
	return d, nil
}

// ListDonations lists donations made by giver, newest first.
func (s *Store) ListDonations(ctx context.Context, giver domain.Address) ([]domain.Donation, error) {
	return s.queryDonations(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE giver_address = ?
		  ORDER BY created_at DESC, id`, giver.String())
}

// ListDelegations lists waiting donations to DACs owned by owner.
func (s *Store) ListDelegations(ctx context.Context, owner domain.Address) ([]domain.Donation, error) {
	return s.queryDonations(ctx,
		`SELECT `+donationColumns+` FROM donations
		  WHERE owner_type = ? AND status = ?
		    AND owner_id IN (SELECT id FROM dacs WHERE owner_address = ?)
		  ORDER BY created_at DESC, id`,
		string(domain.KindDAC), DonationWaiting, owner.String())
}

func (s *Store) queryDonations(ctx context.Context, query string, args ...any) ([]domain.Donation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	out := []domain.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---------- Balances ----------

// FetchBalance returns the recorded balance of addr, "0" when unknown.
func (s *Store) FetchBalance(ctx context.Context, addr domain.Address) (string, error) {
	var amount string
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE address = ?`, addr.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch balance: %w", err)
	}
	return amount, nil
}

// SetBalance records the balance of addr.
func (s *Store) SetBalance(ctx context.Context, addr domain.Address, amount string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (address, amount) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET amount = excluded.amount`,
		addr.String(), amount)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// ---------- Conversion rates ----------

// FetchConversionRates returns the stored rates for symbol. The timestamp is
// that of the most recent update; an unknown symbol has no rates.
func (s *Store) FetchConversionRates(ctx context.Context, symbol string) (domain.ConversionRates, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT currency, rate, updated_at FROM conversion_rates WHERE symbol = ? ORDER BY currency`,
		strings.ToUpper(symbol))
	if err != nil {
		return domain.ConversionRates{}, fmt.Errorf("fetch conversion rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := domain.ConversionRates{Symbol: strings.ToUpper(symbol), Rates: map[string]float64{}}
	for rows.Next() {
		var (
			currency string
			rate     float64
			updated  int64
		)
		if err := rows.Scan(&currency, &rate, &updated); err != nil {
			return domain.ConversionRates{}, fmt.Errorf("scan conversion rate: %w", err)
		}
		out.Rates[strings.ToUpper(currency)] = rate
		if t := fromMillis(updated); t.After(out.Timestamp) {
			out.Timestamp = t
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ConversionRates{}, fmt.Errorf("fetch conversion rates: %w", err)
	}
	return out, nil
}

// SetConversionRate records the price of one symbol unit in currency.
func (s *Store) SetConversionRate(ctx context.Context, symbol, currency string, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("set conversion rate: rate must be positive, got %v", rate)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_rates (symbol, currency, rate, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol, currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
		strings.ToUpper(symbol), strings.ToUpper(currency), rate, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("set conversion rate: %w", err)
	}
	return nil
}

// ---------- helpers ----------

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isConstraintError reports whether err is a SQLite constraint violation
// (primary, extended foreign-key and unique codes share the low byte).
func isConstraintError(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
}

// Compile-time assertions.
var (
	_ domain.UserDirectory    = (*Store)(nil)
	_ domain.EntityRepository = (*Store)(nil)
	_ domain.DonationLedger   = (*Store)(nil)
)
