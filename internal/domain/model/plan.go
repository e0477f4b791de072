package model

import (
	"time"

	"telegram-pix-subscription/internal/domain"
)

// Plan is a purchasable access tier with a fixed duration and PIX price.
// Renewal plans carry discounted prices and are only offered inside the
// renewal window.
type Plan struct {
	Code         string // e.g. "monthly", "monthly-renewal"
	Name         string
	DurationDays int
	AmountCents  int64 // BRL centavos
	Renewal      bool
}

func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

func (p *Plan) IsZero() bool { return p == nil || p.Code == "" }

// NewPlan validates and constructs a plan.
func NewPlan(code, name string, durationDays int, amountCents int64, renewal bool) (*Plan, error) {
	if code == "" || name == "" || durationDays <= 0 || amountCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		Code:         code,
		Name:         name,
		DurationDays: durationDays,
		AmountCents:  amountCents,
		Renewal:      renewal,
	}, nil
}

// DefaultPlans mirrors the launch price tables: the initial menu plus the
// discounted renewal menu shown while the offer window is open.
func DefaultPlans() []*Plan {
	return []*Plan{
		{Code: "weekly", Name: "Plano Semanal", DurationDays: 7, AmountCents: 1990},
		{Code: "monthly", Name: "Plano Mensal", DurationDays: 30, AmountCents: 2990},
		{Code: "yearly", Name: "Plano Anual", DurationDays: 365, AmountCents: 3990},
		{Code: "yearly-promo", Name: "Plano Anual Promocional", DurationDays: 365, AmountCents: 2999},
		{Code: "weekly-renewal", Name: "Plano Semanal (Renovação)", DurationDays: 7, AmountCents: 1090, Renewal: true},
		{Code: "monthly-renewal", Name: "Plano Mensal (Renovação)", DurationDays: 30, AmountCents: 1590, Renewal: true},
		{Code: "yearly-renewal", Name: "Plano Anual (Renovação)", DurationDays: 365, AmountCents: 1990, Renewal: true},
	}
}

// PlanTable indexes plans by code and splits the two menus.
type PlanTable struct {
	byCode map[string]*Plan
	order  []*Plan
}

func NewPlanTable(plans []*Plan) *PlanTable {
	t := &PlanTable{byCode: make(map[string]*Plan, len(plans))}
	for _, p := range plans {
		if p.IsZero() {
			continue
		}
		t.byCode[p.Code] = p
		t.order = append(t.order, p)
	}
	return t
}

func (t *PlanTable) Find(code string) (*Plan, error) {
	p, ok := t.byCode[code]
	if !ok {
		return nil, domain.ErrUnknownPlan
	}
	return p, nil
}

// Menu returns the plans for one of the two menus, in declaration order.
func (t *PlanTable) Menu(renewal bool) []*Plan {
	out := make([]*Plan, 0, len(t.order))
	for _, p := range t.order {
		if p.Renewal == renewal {
			out = append(out, p)
		}
	}
	return out
}
