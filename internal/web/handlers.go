package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dapp/internal/crypto"
	"dapp/internal/domain"
	"dapp/internal/gate"
	"dapp/internal/services/entity"
)

// page wraps a route handler with page-view tracking by route pattern.
func (s *Site) page(h gate.Handler) gate.Handler {
	return func(w http.ResponseWriter, r *http.Request, req gate.Request) {
		s.tracker.TrackPage(req.Pattern)
		h(w, r, req)
	}
}

// profileOverlay holds profiles saved since start-up, by address. The
// resolved session is a start-up snapshot.
type profileOverlay struct {
	mu    sync.RWMutex
	users map[domain.Address]domain.User
}

func (o *profileOverlay) get(addr domain.Address) (domain.User, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	u, ok := o.users[addr]
	return u, ok
}

func (o *profileOverlay) set(u domain.User) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.users == nil {
		o.users = make(map[domain.Address]domain.User)
	}
	o.users[u.Address] = u
}

// currentUser returns the session user, refreshed by any profile saved
// since start-up.
func (s *Site) currentUser(req gate.Request) *domain.User {
	u := req.Resolved.Session.CurrentUser
	if u == nil {
		return nil
	}
	if saved, ok := s.overlay.get(u.Address); ok {
		return &saved
	}
	return u
}

func (s *Site) actor(req gate.Request) entity.Actor {
	return entity.Actor{User: s.currentUser(req), Whitelist: req.Resolved.Whitelist}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.render(w, r, req, http.StatusNotFound, "notfound", "Not found", nil)
}

// loadFailed renders the outcome of a failed entity load: not found, or an
// error toast on an otherwise empty page.
func (s *Site) loadFailed(w http.ResponseWriter, r *http.Request, req gate.Request, kind domain.EntityKind, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.notFound(w, r, req)
		return
	}
	s.logger.Warn("load failed", "kind", string(kind), "path", r.URL.Path, "err", err)
	s.flash(r, domain.Toast{Level: domain.ToastError, Message: entity.Message(kind, fmt.Errorf("%w: %w", entity.ErrLoad, err))})
	s.render(w, r, req, http.StatusBadGateway, "text", entity.Noun(kind), nil)
}

// ---------- static pages ----------

var termsText = []string{
	"Giveth is an experimental platform for donating to Funds, Campaigns and Milestones.",
	"Donations are final. Giveth does not custody funds and cannot reverse transfers.",
	"By using the dapp you accept that it is beta software provided without warranty.",
}

var privacyText = []string{
	"Your profile (name, email, avatar and LinkedIn) is stored by the DAC service and shown publicly next to your address.",
	"Your wallet key never leaves this machine. It is stored encrypted under your passphrase.",
	"Page views and edit events are counted anonymously when analytics are enabled.",
}

func (s *Site) terms(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.render(w, r, req, http.StatusOK, "text", "Terms and conditions", termsText)
}

func (s *Site) privacy(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.render(w, r, req, http.StatusOK, "text", "Privacy policy", privacyText)
}

// ---------- lists ----------

type homeBody struct {
	DACs      []domain.DAC
	Campaigns []domain.Campaign
}

// loadLists fetches DACs and campaigns for owner (everything when empty)
// concurrently.
func (s *Site) loadLists(r *http.Request, owner domain.Address) (homeBody, error) {
	var body homeBody
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		body.DACs, err = s.remote.ListDACs(ctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		body.Campaigns, err = s.remote.ListCampaigns(ctx, owner)
		return err
	})
	return body, g.Wait()
}

func (s *Site) home(w http.ResponseWriter, r *http.Request, req gate.Request) {
	body, err := s.loadLists(r, "")
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "home", "Home", body)
}

type dacsBody struct {
	DACs      []domain.DAC
	CanCreate bool
}

type campaignsBody struct {
	Campaigns []domain.Campaign
	CanCreate bool
}

func (s *Site) dacs(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.listDACs(w, r, req, "", "Funds")
}

func (s *Site) myDACs(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		redirect(w, r, "/")
		return
	}
	s.listDACs(w, r, req, u.Address, "My Funds")
}

func (s *Site) listDACs(w http.ResponseWriter, r *http.Request, req gate.Request, owner domain.Address, title string) {
	list, err := s.remote.ListDACs(r.Context(), owner)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	u := s.currentUser(req)
	canCreate := u != nil && req.Resolved.Whitelist.IsDelegate(u.Address)
	s.render(w, r, req, http.StatusOK, "dacs", title, dacsBody{DACs: list, CanCreate: canCreate})
}

func (s *Site) campaigns(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.listCampaigns(w, r, req, "", "Campaigns")
}

func (s *Site) myCampaigns(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		redirect(w, r, "/")
		return
	}
	s.listCampaigns(w, r, req, u.Address, "My Campaigns")
}

func (s *Site) listCampaigns(w http.ResponseWriter, r *http.Request, req gate.Request, owner domain.Address, title string) {
	list, err := s.remote.ListCampaigns(r.Context(), owner)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindCampaign, err)
		return
	}
	u := s.currentUser(req)
	canCreate := u != nil && req.Resolved.Whitelist.IsProjectOwner(u.Address)
	s.render(w, r, req, http.StatusOK, "campaigns", title, campaignsBody{Campaigns: list, CanCreate: canCreate})
}

func (s *Site) myMilestones(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		redirect(w, r, "/")
		return
	}
	list, err := s.remote.ListMilestones(r.Context(), "", u.Address)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindMilestone, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "milestones", "My Milestones", milestoneRows(s.quote(r, req), list))
}

func (s *Site) donations(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		redirect(w, r, "/")
		return
	}
	list, err := s.remote.ListDonations(r.Context(), u.Address)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "donations", "My Donations", donationRows(s.quote(r, req), list))
}

func (s *Site) delegations(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		redirect(w, r, "/")
		return
	}
	list, err := s.remote.ListDelegations(r.Context(), u.Address)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "donations", "My Delegations", donationRows(s.quote(r, req), list))
}

// ---------- entity views ----------

type dacBody struct {
	DAC         domain.DAC
	Description string
	CanEdit     bool
}

func (s *Site) viewDAC(w http.ResponseWriter, r *http.Request, req gate.Request) {
	d, err := s.remote.FetchDAC(r.Context(), domain.EntityID(req.Params.Get("id")))
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "dac", d.Title, dacBody{
		DAC:         d,
		Description: entity.PlainText(d.Description),
		CanEdit:     domain.IsOwner(d.OwnerAddress, s.currentUser(req)),
	})
}

type campaignBody struct {
	Campaign    domain.Campaign
	Description string
	Milestones  []milestoneRow
	CanEdit     bool
	CanPropose  bool
}

func (s *Site) viewCampaign(w http.ResponseWriter, r *http.Request, req gate.Request) {
	id := domain.EntityID(req.Params.Get("id"))
	var (
		c  domain.Campaign
		ms []domain.Milestone
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		c, err = s.remote.FetchCampaign(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		ms, err = s.remote.ListMilestones(ctx, id, "")
		return err
	})
	if err := g.Wait(); err != nil {
		s.loadFailed(w, r, req, domain.KindCampaign, err)
		return
	}
	u := s.currentUser(req)
	owner := domain.IsOwner(c.OwnerAddress, u)
	s.render(w, r, req, http.StatusOK, "campaign", c.Title, campaignBody{
		Campaign:    c,
		Description: entity.PlainText(c.Description),
		Milestones:  milestoneRows(s.quote(r, req), ms),
		CanEdit:     owner,
		CanPropose:  u != nil && !owner,
	})
}

type milestoneBody struct {
	Milestone     domain.Milestone
	Description   string
	MaxAmountFiat string
	CanEdit       bool
}

func (s *Site) viewMilestone(w http.ResponseWriter, r *http.Request, req gate.Request) {
	m, err := s.remote.FetchMilestone(r.Context(), domain.EntityID(req.Params.Get("milestoneId")))
	if err == nil && m.CampaignID != domain.EntityID(req.Params.Get("id")) {
		err = domain.ErrNotFound
	}
	if err != nil {
		s.loadFailed(w, r, req, domain.KindMilestone, err)
		return
	}
	s.render(w, r, req, http.StatusOK, "milestone", m.Title, milestoneBody{
		Milestone:     m,
		Description:   entity.PlainText(m.Description),
		MaxAmountFiat: s.quote(r, req).Format(m.MaxAmount),
		CanEdit: domain.IsOwner(m.OwnerAddress, s.currentUser(req)) &&
			m.Status != domain.MilestoneCompleted,
	})
}

func (s *Site) milestonesRedirect(w http.ResponseWriter, r *http.Request, req gate.Request) {
	redirect(w, r, "/campaigns/"+req.Params.Get("id"))
}

// ---------- profiles ----------

type profileBody struct {
	User      domain.User
	Editable  bool
	Errors    map[string]string
	DACs      []domain.DAC
	Campaigns []domain.Campaign
}

func (s *Site) profile(w http.ResponseWriter, r *http.Request, req gate.Request) {
	u := s.currentUser(req)
	if u == nil {
		s.flash(r, domain.Toast{Level: domain.ToastWarning, Message: "Please unlock your wallet to edit your profile."})
		redirect(w, r, "/")
		return
	}
	if r.Method != http.MethodPost {
		s.render(w, r, req, http.StatusOK, "profile", "Profile", profileBody{User: *u, Editable: true})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	next := *u
	next.Name = strings.TrimSpace(r.PostFormValue("name"))
	next.Email = strings.TrimSpace(r.PostFormValue("email"))
	next.Avatar = strings.TrimSpace(r.PostFormValue("avatar"))
	next.LinkedIn = strings.TrimSpace(r.PostFormValue("linkedin"))

	errs := map[string]string{}
	if next.Name == "" {
		errs["name"] = "Please provide your name."
	}
	if next.LinkedIn != "" && !strings.HasPrefix(next.LinkedIn, "https://") {
		errs["linkedin"] = "Please provide a https url."
	}
	if len(errs) > 0 {
		s.render(w, r, req, http.StatusUnprocessableEntity, "profile", "Profile",
			profileBody{User: next, Editable: true, Errors: errs})
		return
	}

	saved, err := s.profiles.SaveProfile(r.Context(), next)
	if err != nil {
		s.logger.Warn("save profile", "err", err)
		s.flash(r, domain.Toast{Level: domain.ToastError, Message: "There has been a problem saving your profile. Please try again."})
		s.render(w, r, req, http.StatusBadGateway, "profile", "Profile", profileBody{User: next, Editable: true})
		return
	}
	s.overlay.set(saved)
	s.flash(r, domain.Toast{Level: domain.ToastSuccess, Message: "Your profile has been updated."})
	redirect(w, r, "/profile/"+saved.Address.String())
}

func (s *Site) viewProfile(w http.ResponseWriter, r *http.Request, req gate.Request) {
	addr, err := crypto.ParseAddress(req.Params.Get("userAddress"))
	if err != nil {
		s.notFound(w, r, req)
		return
	}
	u, err := s.remote.FetchUser(r.Context(), addr)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u = domain.User{Address: addr}
	case err != nil:
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	lists, err := s.loadLists(r, addr)
	if err != nil {
		s.loadFailed(w, r, req, domain.KindDAC, err)
		return
	}
	title := u.Name
	if title == "" {
		title = addr.String()
	}
	s.render(w, r, req, http.StatusOK, "profile", title, profileBody{
		User:      u,
		DACs:      lists.DACs,
		Campaigns: lists.Campaigns,
	})
}
