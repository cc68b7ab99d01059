package web

import (
	"dapp/internal/gate"
	"dapp/internal/route"
)

// Table returns the gated route table. Order matters: the first matching
// pattern wins.
func (s *Site) Table() *route.Table[gate.Handler] {
	t := route.New[gate.Handler](s.page(s.notFound))
	t.MustAdd("/termsandconditions", s.page(s.terms)).
		MustAdd("/privacypolicy", s.page(s.privacy)).
		MustAdd("/dacs/new", s.page(s.editDAC)).
		MustAdd("/dacs/:id", s.page(s.viewDAC)).
		MustAdd("/dacs/:id/edit", s.page(s.editDAC)).
		MustAdd("/campaigns/new", s.page(s.editCampaign)).
		MustAdd("/campaigns/:id", s.page(s.viewCampaign)).
		MustAdd("/campaigns/:id/edit", s.page(s.editCampaign)).
		MustAdd("/campaigns/:id/milestones/new", s.page(s.addMilestone)).
		MustAdd("/campaigns/:id/milestones/propose", s.page(s.proposeMilestone)).
		MustAdd("/campaigns/:id/milestones/:milestoneId", s.page(s.viewMilestone)).
		MustAdd("/campaigns/:id/milestones/:milestoneId/edit", s.page(s.editMilestone)).
		MustAdd("/campaigns/:id/milestones", s.page(s.milestonesRedirect)).
		MustAdd("/milestones/:milestoneId/edit", s.page(s.editMilestone)).
		MustAdd("/milestones/:milestoneId/edit/proposed", s.page(s.editProposedMilestone)).
		MustAdd("/donations", s.page(s.donations)).
		MustAdd("/delegations", s.page(s.delegations)).
		MustAdd("/my-dacs", s.page(s.myDACs)).
		MustAdd("/my-campaigns", s.page(s.myCampaigns)).
		MustAdd("/my-milestones", s.page(s.myMilestones)).
		MustAdd("/profile", s.page(s.profile)).
		MustAdd("/profile/:userAddress", s.page(s.viewProfile)).
		MustAdd("/", s.page(s.home)).
		MustAdd("/campaigns", s.page(s.campaigns)).
		MustAdd("/dacs", s.page(s.dacs))
	return t
}
