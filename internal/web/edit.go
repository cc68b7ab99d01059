package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dapp/internal/domain"
	"dapp/internal/gate"
	"dapp/internal/remote"
	"dapp/internal/services/entity"
)

const maxFormMemory = 8 << 20

type formField struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

type formBody struct {
	Heading  string
	Action   string
	Submit   string
	Fields   []formField
	Disabled bool
}

func field(name, label, typ, value string, errs map[string]string) formField {
	return formField{Name: name, Label: label, Type: typ, Value: value, Error: errs[name]}
}

// entityFailed handles errors from the edit flows that are not field
// validation errors. back is where the visitor came from.
func (s *Site) entityFailed(
	w http.ResponseWriter,
	r *http.Request,
	req gate.Request,
	kind domain.EntityKind,
	err error,
	back string,
) {
	noun := entity.Noun(kind)
	switch {
	case errors.Is(err, entity.ErrNoUser):
		redirect(w, r, "/")
	case errors.Is(err, entity.ErrNotOwner):
		redirect(w, r, back)
	case errors.Is(err, entity.ErrNoProfile):
		s.flash(r, domain.Toast{
			Level:   domain.ToastWarning,
			Message: fmt.Sprintf("Please set up your profile before managing a %s.", noun),
			Link:    "/profile",
		})
		redirect(w, r, "/profile")
	case errors.Is(err, entity.ErrLoad) && errors.Is(err, domain.ErrNotFound):
		s.notFound(w, r, req)
	default:
		s.logger.Warn("edit failed", "kind", string(kind), "path", r.URL.Path, "err", err)
		s.flash(r, domain.Toast{Level: domain.ToastError, Message: entity.Message(kind, err)})
		redirect(w, r, back)
	}
}

// parseEntityForm parses the posted form and stores an uploaded image,
// returning its URL or the previous one. A previous URL the image store does
// not serve is dropped, which keeps the entity's current image.
func (s *Site) parseEntityForm(r *http.Request) (image string, err error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", err
	}
	image = r.FormValue("imageUrl")
	if image != "" && (s.images == nil || !s.images.Hosts(image)) {
		s.logger.Warn("ignoring image url not served by the image store", "path", r.URL.Path, "url", image)
		image = ""
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return image, nil
	}
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()
	if s.images == nil {
		return image, nil
	}
	return s.images.SaveImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
}

// formFailed renders the form again after a failed save.
func (s *Site) formFailed(
	w http.ResponseWriter,
	r *http.Request,
	req gate.Request,
	kind domain.EntityKind,
	err error,
	back string,
	form formBody,
) {
	switch {
	case entity.FieldErrors(err) != nil:
		s.render(w, r, req, http.StatusUnprocessableEntity, "form", form.Heading, form)
	case errors.Is(err, entity.ErrSave):
		s.logger.Warn("save failed", "kind", string(kind), "err", err)
		s.flash(r, domain.Toast{Level: domain.ToastError, Message: saveFailedMessage(kind, err)})
		s.render(w, r, req, http.StatusBadGateway, "form", form.Heading, form)
	default:
		s.entityFailed(w, r, req, kind, err, back)
	}
}

// saveFailedMessage explains a refused write: the DAC service answers 401
// for missing or stale wallet signatures and 403 for writes the account may
// not make.
func saveFailedMessage(kind domain.EntityKind, err error) string {
	switch {
	case remote.IsStatus(err, http.StatusUnauthorized):
		return "The DAC service did not accept your wallet signature. Unlock your wallet and try again."
	case remote.IsStatus(err, http.StatusForbidden):
		return fmt.Sprintf("Your account is not allowed to save this %s.", entity.Noun(kind))
	default:
		return entity.Message(kind, err)
	}
}

func (s *Site) savedToast(r *http.Request, kind domain.EntityKind) {
	s.flash(r, domain.Toast{Level: domain.ToastSuccess, Message: entity.SavedMessage(kind)})
}

// ---------- DACs ----------

func dacForm(id domain.EntityID, f entity.DACForm, errs map[string]string, disabled bool) formBody {
	body := formBody{Heading: "Create a Fund", Action: "/dacs/new", Submit: "Create Fund", Disabled: disabled}
	if id != "" {
		body = formBody{Heading: "Edit Fund", Action: "/dacs/" + id.String() + "/edit", Submit: "Update Fund", Disabled: disabled}
	}
	body.Fields = []formField{
		field("title", "Title", "text", f.Title, errs),
		field("description", "Description", "textarea", f.Description, errs),
		field("communityUrl", "Url to join your community", "url", f.CommunityURL, errs),
		field("image", "Add a picture", "file", f.Image, errs),
	}
	return body
}

func (s *Site) editDAC(w http.ResponseWriter, r *http.Request, req gate.Request) {
	id := domain.EntityID(req.Params.Get("id"))
	back := "/dacs"
	if id != "" {
		back = "/dacs/" + id.String()
	}

	d, err := s.entities.EditDAC(r.Context(), s.actor(req), id)
	if err != nil {
		s.entityFailed(w, r, req, domain.KindDAC, err, back)
		return
	}
	// A DAC without a delegate id is still being created remotely.
	pending := id != "" && d.DelegateID == 0

	if r.Method != http.MethodPost {
		f := entity.DACForm{Title: d.Title, Description: d.Description, CommunityURL: d.CommunityURL, Image: d.Image}
		body := dacForm(id, f, nil, pending)
		s.render(w, r, req, http.StatusOK, "form", body.Heading, body)
		return
	}

	image, err := s.parseEntityForm(r)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	f := entity.DACForm{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		CommunityURL: strings.TrimSpace(r.FormValue("communityUrl")),
		Image:        image,
	}
	saved, err := s.entities.SaveDAC(r.Context(), s.actor(req), id, f)
	if err != nil {
		s.formFailed(w, r, req, domain.KindDAC, err, back, dacForm(id, f, entity.FieldErrors(err), pending))
		return
	}
	s.savedToast(r, domain.KindDAC)
	redirect(w, r, "/dacs/"+saved.ID.String())
}

// ---------- campaigns ----------

func campaignForm(id domain.EntityID, f entity.CampaignForm, errs map[string]string) formBody {
	body := formBody{Heading: "Start a new Campaign", Action: "/campaigns/new", Submit: "Create Campaign"}
	if id != "" {
		body = formBody{Heading: "Edit Campaign", Action: "/campaigns/" + id.String() + "/edit", Submit: "Update Campaign"}
	}
	body.Fields = []formField{
		field("title", "Title", "text", f.Title, errs),
		field("description", "Description", "textarea", f.Description, errs),
		field("communityUrl", "Url to join your community", "url", f.CommunityURL, errs),
		field("reviewer", "Reviewer address", "text", f.Reviewer, errs),
		field("image", "Add a picture", "file", f.Image, errs),
	}
	return body
}

func (s *Site) editCampaign(w http.ResponseWriter, r *http.Request, req gate.Request) {
	id := domain.EntityID(req.Params.Get("id"))
	back := "/campaigns"
	if id != "" {
		back = "/campaigns/" + id.String()
	}

	c, err := s.entities.EditCampaign(r.Context(), s.actor(req), id)
	if err != nil {
		s.entityFailed(w, r, req, domain.KindCampaign, err, back)
		return
	}

	if r.Method != http.MethodPost {
		f := entity.CampaignForm{
			Title:        c.Title,
			Description:  c.Description,
			CommunityURL: c.CommunityURL,
			Image:        c.Image,
			Reviewer:     c.ReviewerAddress.String(),
		}
		body := campaignForm(id, f, nil)
		s.render(w, r, req, http.StatusOK, "form", body.Heading, body)
		return
	}

	image, err := s.parseEntityForm(r)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	f := entity.CampaignForm{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		CommunityURL: strings.TrimSpace(r.FormValue("communityUrl")),
		Reviewer:     strings.TrimSpace(r.FormValue("reviewer")),
		Image:        image,
	}
	saved, err := s.entities.SaveCampaign(r.Context(), s.actor(req), id, f)
	if err != nil {
		s.formFailed(w, r, req, domain.KindCampaign, err, back, campaignForm(id, f, entity.FieldErrors(err)))
		return
	}
	s.savedToast(r, domain.KindCampaign)
	redirect(w, r, "/campaigns/"+saved.ID.String())
}

// ---------- milestones ----------

var milestoneHeadings = map[entity.MilestoneMode][2]string{
	entity.MilestoneAdd:          {"Add a Milestone", "Add Milestone"},
	entity.MilestonePropose:      {"Propose a Milestone", "Propose Milestone"},
	entity.MilestoneEdit:         {"Edit Milestone", "Update Milestone"},
	entity.MilestoneEditProposed: {"Edit proposed Milestone", "Update proposal"},
}

func milestoneForm(action string, mode entity.MilestoneMode, f entity.MilestoneForm, errs map[string]string) formBody {
	h := milestoneHeadings[mode]
	return formBody{
		Heading: h[0],
		Action:  action,
		Submit:  h[1],
		Fields: []formField{
			field("title", "Title", "text", f.Title, errs),
			field("description", "Description", "textarea", f.Description, errs),
			field("maxAmount", "Maximum amount", "text", f.MaxAmount, errs),
			field("recipient", "Recipient address", "text", f.Recipient, errs),
			field("reviewer", "Reviewer address", "text", f.Reviewer, errs),
			field("image", "Add a picture", "file", f.Image, errs),
		},
	}
}

func (s *Site) addMilestone(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.milestone(w, r, req, entity.MilestoneTarget{
		Mode:       entity.MilestoneAdd,
		CampaignID: domain.EntityID(req.Params.Get("id")),
	})
}

func (s *Site) proposeMilestone(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.milestone(w, r, req, entity.MilestoneTarget{
		Mode:       entity.MilestonePropose,
		CampaignID: domain.EntityID(req.Params.Get("id")),
	})
}

func (s *Site) editMilestone(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.milestone(w, r, req, entity.MilestoneTarget{
		Mode:       entity.MilestoneEdit,
		CampaignID: domain.EntityID(req.Params.Get("id")),
		ID:         domain.EntityID(req.Params.Get("milestoneId")),
	})
}

func (s *Site) editProposedMilestone(w http.ResponseWriter, r *http.Request, req gate.Request) {
	s.milestone(w, r, req, entity.MilestoneTarget{
		Mode: entity.MilestoneEditProposed,
		ID:   domain.EntityID(req.Params.Get("milestoneId")),
	})
}

func (s *Site) milestone(w http.ResponseWriter, r *http.Request, req gate.Request, t entity.MilestoneTarget) {
	back := "/my-milestones"
	if t.CampaignID != "" {
		back = "/campaigns/" + t.CampaignID.String()
	}

	m, err := s.entities.EditMilestone(r.Context(), s.actor(req), t)
	if err == nil && t.ID != "" && t.CampaignID != "" && m.CampaignID != t.CampaignID {
		err = fmt.Errorf("%w: %w", entity.ErrLoad, domain.ErrNotFound)
	}
	if err != nil {
		s.entityFailed(w, r, req, domain.KindMilestone, err, back)
		return
	}

	if r.Method != http.MethodPost {
		f := entity.MilestoneForm{
			Title:       m.Title,
			Description: m.Description,
			Image:       m.Image,
			MaxAmount:   m.MaxAmount,
			Recipient:   m.RecipientAddress.String(),
			Reviewer:    m.ReviewerAddress.String(),
		}
		body := milestoneForm(r.URL.Path, t.Mode, f, nil)
		s.render(w, r, req, http.StatusOK, "form", body.Heading, body)
		return
	}

	image, err := s.parseEntityForm(r)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	f := entity.MilestoneForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		MaxAmount:   strings.TrimSpace(r.FormValue("maxAmount")),
		Recipient:   strings.TrimSpace(r.FormValue("recipient")),
		Reviewer:    strings.TrimSpace(r.FormValue("reviewer")),
		Image:       image,
	}
	saved, err := s.entities.SaveMilestone(r.Context(), s.actor(req), t, f)
	if err != nil {
		body := milestoneForm(r.URL.Path, t.Mode, f, entity.FieldErrors(err))
		s.formFailed(w, r, req, domain.KindMilestone, err, back, body)
		return
	}
	s.savedToast(r, domain.KindMilestone)
	redirect(w, r, "/campaigns/"+saved.CampaignID.String()+"/milestones/"+saved.ID.String())
}

func (s *Site) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("form upload", "path", r.URL.Path, "err", err)
	s.flash(r, domain.Toast{Level: domain.ToastError, Message: "We could not store your picture. Please try another image."})
	redirect(w, r, r.URL.Path)
}
