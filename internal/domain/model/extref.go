package model

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"telegram-pix-subscription/internal/domain"
)

// ExternalRefNamespace prefixes every correlation string we attach to an
// outbound charge, so reference recovery can reject foreign charges.
const ExternalRefNamespace = "pixsub"

// ExternalRef is the correlation token embedded in the provider charge and
// echoed back in webhook lookups. It lets reconciliation re-derive the owner
// of a charge whose local record is missing.
type ExternalRef struct {
	UserID   int64
	PlanCode string
	Nonce    string
}

// NewExternalRef builds a fresh reference with a ULID nonce.
func NewExternalRef(userID int64, planCode string) ExternalRef {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ExternalRef{
		UserID:   userID,
		PlanCode: planCode,
		Nonce:    ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
	}
}

// String renders "pixsub:<user_id>:<plan_code>:<nonce>".
func (r ExternalRef) String() string {
	return fmt.Sprintf("%s:%d:%s:%s", ExternalRefNamespace, r.UserID, r.PlanCode, r.Nonce)
}

// ParseExternalRef recovers the reference from a provider echo. Plan codes
// never contain ':' so a strict 4-way split is safe.
func ParseExternalRef(s string) (ExternalRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != ExternalRefNamespace {
		return ExternalRef{}, domain.ErrBadExternalRef
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || uid <= 0 || parts[2] == "" || parts[3] == "" {
		return ExternalRef{}, domain.ErrBadExternalRef
	}
	return ExternalRef{UserID: uid, PlanCode: parts[2], Nonce: parts[3]}, nil
}
