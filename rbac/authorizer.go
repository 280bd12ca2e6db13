package rbac

import (
	"context"
	"errors"
)

// TournamentStatus values mirror the tournament collaborator's lifecycle
// field. Only open tournaments accept registrations.
const (
	TournamentOpen       = "open"
	TournamentInProgress = "in_progress"
	TournamentCompleted  = "completed"
	TournamentCancelled  = "cancelled"
)

// MembershipRole is the caller's standing inside a club.
type MembershipRole string

const (
	MembershipMember MembershipRole = "member"
	MembershipAdmin  MembershipRole = "admin"
)

// TournamentSnapshot is one consistent read of the ownership and capacity
// fields a predicate needs. Implementations must populate every field,
// including Registered for the queried user, from a single read so a
// concurrent registration cannot split the decision.
type TournamentSnapshot struct {
	OrganizerID         string
	ClubID              string
	Status              string
	CurrentParticipants int
	MaxParticipants     int
	Registered          bool
}

// TournamentProvider is the read-only tournament collaborator. userID may
// be empty when the caller does not need the Registered fact.
type TournamentProvider interface {
	GetTournament(ctx context.Context, tournamentID, userID string) (TournamentSnapshot, bool, error)
}

// ClubProvider resolves a user's membership role within a club. found is
// false for non-members.
type ClubProvider interface {
	GetMembership(ctx context.Context, userID, clubID string) (MembershipRole, bool, error)
}

// Authorizer composes the static permission table with resource-ownership
// lookups. Read-only after construction.
type Authorizer struct {
	tournaments TournamentProvider
	clubs       ClubProvider
}

// NewAuthorizer wires the resource collaborators.
func NewAuthorizer(tournaments TournamentProvider, clubs ClubProvider) (*Authorizer, error) {
	if tournaments == nil || clubs == nil {
		return nil, errors.New("rbac: tournament and club providers are required")
	}
	return &Authorizer{tournaments: tournaments, clubs: clubs}, nil
}

// CanEditTournament allows the direct organizer, a club admin of the
// organizing club, or a platform admin. A missing tournament denies.
func (a *Authorizer) CanEditTournament(ctx context.Context, userID string, role Role, tournamentID string) (bool, error) {
	if HasPermission(role, PermPlatformManage) {
		return true, nil
	}

	t, found, err := a.tournaments.GetTournament(ctx, tournamentID, "")
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if t.OrganizerID == userID {
		return true, nil
	}

	if t.ClubID != "" && HasPermission(role, PermClubManage) {
		membership, isMember, err := a.clubs.GetMembership(ctx, userID, t.ClubID)
		if err != nil {
			return false, err
		}
		return isMember && membership == MembershipAdmin, nil
	}

	return false, nil
}

// CanManageClub allows club admins of the club itself and platform
// admins.
func (a *Authorizer) CanManageClub(ctx context.Context, userID string, role Role, clubID string) (bool, error) {
	if HasPermission(role, PermPlatformManage) {
		return true, nil
	}
	if !HasPermission(role, PermClubManage) {
		return false, nil
	}

	membership, isMember, err := a.clubs.GetMembership(ctx, userID, clubID)
	if err != nil {
		return false, err
	}
	return isMember && membership == MembershipAdmin, nil
}

// CanRegisterForTournament checks, against one snapshot read: the
// tournament is open, strictly below capacity, and the user is not
// already registered. A full tournament denies regardless of who asks.
func (a *Authorizer) CanRegisterForTournament(ctx context.Context, userID string, role Role, tournamentID string) (bool, error) {
	if !HasPermission(role, PermTournamentRegister) {
		return false, nil
	}

	t, found, err := a.tournaments.GetTournament(ctx, tournamentID, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if t.Status != TournamentOpen {
		return false, nil
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return false, nil
	}
	if t.Registered {
		return false, nil
	}

	return true, nil
}
